package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecal/internal/cache"
	"tradecal/internal/core"
)

func TestGenerateEmptyCalendar(t *testing.T) {
	cases := []struct {
		name       string
		year       int
		month      int
		monthName  string
		days       int
		first      string
		last       string
		firstOfMon int // index of day 1 of the month
	}{
		{"march 2024 ends on sunday", 2024, 2, "March", 42, "2024-02-25", "2024-04-06", 5},
		{"february 2015 fits four weeks", 2015, 1, "February", 28, "2015-02-01", "2015-02-28", 0},
		{"september 2024 starts on sunday", 2024, 8, "September", 35, "2024-09-01", "2024-10-05", 0},
		{"january pads from previous year", 2024, 0, "January", 35, "2023-12-31", "2024-02-03", 1},
		{"december pads into next year", 2024, 11, "December", 35, "2024-12-01", "2025-01-04", 0},
		{"leap february", 2024, 1, "February", 35, "2024-01-28", "2024-03-02", 4},
		{"month 12 rolls into january", 2024, 12, "Unknown", 35, "2024-12-29", "2025-02-01", 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			c := svc.GenerateEmptyCalendar(tc.year, tc.month)

			assert.Equal(t, tc.monthName, c.Month)
			assert.Equal(t, tc.year, c.Year)
			assert.Zero(t, c.MonthlyPnL)
			require.Len(t, c.Days, tc.days)
			assert.Zero(t, len(c.Days)%7)
			assert.Equal(t, tc.first, c.Days[0].Date)
			assert.Equal(t, tc.last, c.Days[len(c.Days)-1].Date)
			assert.Equal(t, 1, c.Days[tc.firstOfMon].DayOfMonth)
			assert.Equal(t, 0, c.Days[0].DayOfWeek, "weeks start on sunday")
			assert.Equal(t, 6, c.Days[len(c.Days)-1].DayOfWeek, "weeks end on saturday")

			require.Len(t, c.Weeks, tc.days/7)
			for i, w := range c.Weeks {
				assert.Equal(t, core.WeekSummary{WeekNumber: i + 1}, w)
			}
			for i, d := range c.Days {
				assert.Equal(t, i%7, d.DayOfWeek, d.Date)
				assert.Zero(t, d.PnL)
				assert.Zero(t, d.TradeCount)
				assert.False(t, d.HasNotes)
			}
		})
	}
}

func TestGenerateEmptyCalendar_MonthDaysContiguous(t *testing.T) {
	svc, _, _ := newTestService()
	c := svc.GenerateEmptyCalendar(2023, 1)

	// February 2023 starts on a Wednesday.
	for d := 1; d <= 28; d++ {
		assert.Equal(t, d, c.Days[2+d].DayOfMonth)
	}
}

func TestGenerateEmptyCalendar_Cached(t *testing.T) {
	svc, store, _ := newTestService()

	first := svc.GenerateEmptyCalendar(2024, 2)
	first.Days[0].PnL = 123

	second := svc.GenerateEmptyCalendar(2024, 2)
	assert.Zero(t, second.Days[0].PnL, "callers get copies")
	assert.Equal(t, 1, store.CacheStats()[cache.EmptyCalendar])

	svc.GenerateEmptyCalendar(2024, 3)
	assert.Equal(t, 2, store.CacheStats()[cache.EmptyCalendar])
}

func TestOverlay(t *testing.T) {
	svc, _, _ := newTestService()
	grid := svc.GenerateEmptyCalendar(2024, 2)

	data := &core.CalendarData{Days: []core.Day{
		{Date: "2024-03-04", PnL: -20, TradeCount: 2, HasNotes: true},
		{Date: "2024-07-01", PnL: 99},
	}}
	out := Overlay(grid, data)

	assert.Equal(t, -20.0, out.Days[8].PnL)
	assert.Equal(t, 2, out.Days[8].TradeCount)
	assert.True(t, out.Days[8].HasNotes)
	assert.Zero(t, grid.Days[8].PnL, "grid is not modified")

	total := 0.0
	for _, d := range out.Days {
		total += d.PnL
	}
	assert.Equal(t, -20.0, total)

	assert.Equal(t, grid, Overlay(grid, nil))
}

func TestWeeks(t *testing.T) {
	svc, _, _ := newTestService()
	c := svc.GenerateEmptyCalendar(2024, 2)

	weeks := Weeks(c)
	require.Len(t, weeks, 6)
	for i, w := range weeks {
		assert.Equal(t, i+1, w.WeekNumber)
		require.Len(t, w.Days, 7)
		assert.Zero(t, w.WeekPnL)
		assert.Zero(t, w.WeekTradeCount)
	}
	assert.Equal(t, "2024-02-25", weeks[0].Days[0].Date)
	assert.Equal(t, "2024-04-06", weeks[5].Days[6].Date)

	assert.Empty(t, Weeks(core.CalendarData{}))
}
