package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type latestCmd struct{}

func (*latestCmd) Name() string     { return "latest" }
func (*latestCmd) Synopsis() string { return "print the latest month holding data" }
func (*latestCmd) Usage() string {
	return `tradecal-cli latest

  Prints the most recent month with trading data as YYYY-MM followed by
  its name. Falls back to the current month when no data exists.
`
}

func (*latestCmd) SetFlags(*flag.FlagSet) {}

func (*latestCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	ym, err := a.svc.LatestDataMonth(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s\t%s %d\n", ym, a.svc.Dates().MonthName(ym.Month), ym.Year)
	return subcommands.ExitSuccess
}
