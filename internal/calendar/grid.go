package calendar

import (
	"tradecal/internal/cache"
	"tradecal/internal/core"
	"tradecal/internal/dates"
)

const daysPerWeek = 7

// GenerateEmptyCalendar builds the Sunday-start display grid of a zero-based
// month: the month's days padded with the tail of the previous month and the
// head of the next so the grid covers whole weeks. Every day and week total is
// zero. Months outside 0..11 roll into adjacent years; the reported month name
// is then "Unknown".
func (s *Service) GenerateEmptyCalendar(year, month0 int) core.CalendarData {
	grid := cache.Load(s.store, cache.EmptyCalendar, core.CacheKey(year, month0), func() core.CalendarData {
		return s.buildGrid(year, month0)
	})
	return grid.Clone()
}

func (s *Service) buildGrid(year, month0 int) core.CalendarData {
	daysInMonth := s.dates.DaysInMonth(year, month0)
	firstDayOfWeek := int(dates.Date(year, month0, 1).Weekday())
	prevMonthDays := s.dates.DaysInMonth(year, month0-1)

	days := make([]core.Day, 0, 42)
	for i := firstDayOfWeek - 1; i >= 0; i-- {
		days = append(days, s.emptyDay(year, month0-1, prevMonthDays-i))
	}
	for d := 1; d <= daysInMonth; d++ {
		days = append(days, s.emptyDay(year, month0, d))
	}

	lastDayOfWeek := int(dates.Date(year, month0, daysInMonth).Weekday())
	daysToAdd := 0
	if lastDayOfWeek != 6 {
		daysToAdd = 6 - lastDayOfWeek
	}
	for d := 1; d <= daysToAdd; d++ {
		days = append(days, s.emptyDay(year, month0+1, d))
	}

	numWeeks := (len(days) + daysPerWeek - 1) / daysPerWeek
	weeks := make([]core.WeekSummary, numWeeks)
	for i := range weeks {
		weeks[i] = core.WeekSummary{WeekNumber: i + 1}
	}

	return core.CalendarData{
		Month:      s.dates.MonthName(month0),
		Year:       year,
		MonthlyPnL: 0,
		Days:       days,
		Weeks:      weeks,
	}
}

// emptyDay builds the zero-valued day at (year, month0, day) after
// normalizing overflowing months and days.
func (s *Service) emptyDay(year, month0, day int) core.Day {
	t := dates.Date(year, month0, day)
	return core.Day{
		Date:       s.dates.CreateISODate(t.Year(), int(t.Month())-1, t.Day()),
		DayOfMonth: t.Day(),
		DayOfWeek:  int(t.Weekday()),
	}
}

// Overlay copies P&L, trade counts and notes from data onto the matching days
// of grid. Days of data that fall outside the grid are ignored. A nil data
// returns grid unchanged.
func Overlay(grid core.CalendarData, data *core.CalendarData) core.CalendarData {
	out := grid.Clone()
	if data == nil {
		return out
	}
	byDate := make(map[string]core.Day, len(data.Days))
	for _, d := range data.Days {
		byDate[d.Date] = d
	}
	for i, d := range out.Days {
		src, ok := byDate[d.Date]
		if !ok {
			continue
		}
		out.Days[i].PnL = src.PnL
		out.Days[i].TradeCount = src.TradeCount
		out.Days[i].HasNotes = src.HasNotes
	}
	return out
}

// Weeks partitions the days of c into 7-day weeks. Totals are taken from the
// matching week summary when present.
func Weeks(c core.CalendarData) []core.WeekData {
	n := (len(c.Days) + daysPerWeek - 1) / daysPerWeek
	weeks := make([]core.WeekData, 0, n)
	for i := 0; i < n; i++ {
		end := min((i+1)*daysPerWeek, len(c.Days))
		w := core.WeekData{
			WeekNumber: i + 1,
			Days:       append([]core.Day(nil), c.Days[i*daysPerWeek:end]...),
		}
		if i < len(c.Weeks) {
			w.WeekPnL = c.Weeks[i].WeekPnL
			w.WeekTradeCount = c.Weeks[i].WeekTradeCount
		}
		weeks = append(weeks, w)
	}
	return weeks
}
