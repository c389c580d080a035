package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"tradecal/internal/calendar"
	"tradecal/internal/core"
	"tradecal/internal/format"
)

type showCmd struct {
	raw bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display the calendar of a month" }
func (*showCmd) Usage() string {
	return `tradecal-cli show [-raw] [YYYY-MM]

  Displays the month grid with daily P&L and the list of trading days.
  Without a month, the latest month holding data is shown.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print Markdown without terminal rendering")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: at most one month argument")
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	var ym calendar.YearMonth
	if f.NArg() == 1 {
		year, month0, err := core.ParseMonthKey(f.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		ym = calendar.YearMonth{Year: year, Month: month0}
	} else if ym, err = a.svc.LatestDataMonth(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	view, found, err := a.svc.MonthView(ctx, ym.Year, ym.Month)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(monthMarkdown(view, ym, found, format.New(a.store)), c.raw)
	return subcommands.ExitSuccess
}

var weekdayHeaders = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// monthMarkdown renders the grid as a table followed by the trading days.
func monthMarkdown(view core.CalendarData, ym calendar.YearMonth, found bool, f *format.Formatter) string {
	prefix := ym.String()
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %d\n\n", view.Month, view.Year)

	b.WriteString("| " + strings.Join(weekdayHeaders, " | ") + " |\n")
	b.WriteString(strings.Repeat("|:---:", len(weekdayHeaders)) + "|\n")

	var (
		total  float64
		trades int
		days   []core.Day
	)
	for _, week := range calendar.Weeks(view) {
		cells := make([]string, 0, len(week.Days))
		for _, d := range week.Days {
			inMonth := strings.HasPrefix(d.Date, prefix)
			cell := fmt.Sprint(d.DayOfMonth)
			switch {
			case !inMonth:
				cell = "_" + cell + "_"
			case d.TradeCount > 0:
				cell = fmt.Sprintf("**%d** %s", d.DayOfMonth, f.Currency(d.PnL))
				total += d.PnL
				trades += d.TradeCount
				days = append(days, d)
			}
			cells = append(cells, cell)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	if !found {
		b.WriteString("\nNo trading data for this month.\n")
		return b.String()
	}

	total = float64(core.Cents(total)) / 100
	fmt.Fprintf(&b, "\n**Month:** %s (%s) over %s\n\n", f.Currency(total), f.PnLClass(total), f.TradeCount(trades))
	b.WriteString("| Date | P&L | Trades | Notes |\n|---|---:|---:|:---:|\n")
	for _, d := range days {
		notes := ""
		if d.HasNotes {
			notes = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", d.Date, f.Currency(d.PnL), f.TradeCount(d.TradeCount), notes)
	}
	return b.String()
}
