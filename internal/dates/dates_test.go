package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecal/internal/cache"
)

func newCalc() (*Calc, *cache.Store) {
	s := cache.New()
	return New(s), s
}

func TestCreateISODate(t *testing.T) {
	c, s := newCalc()

	assert.Equal(t, "2024-01-05", c.CreateISODate(2024, 0, 5))
	assert.Equal(t, "2024-12-31", c.CreateISODate(2024, 11, 31))
	assert.Equal(t, "999-03-01", c.CreateISODate(999, 2, 1))
	assert.Equal(t, 3, s.CacheStats()[cache.DateToString])
}

func TestParseDateParts(t *testing.T) {
	c, s := newCalc()

	p, err := c.ParseDateParts("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, Parts{Year: 2024, Month: 2, Day: 15}, p)
	assert.Equal(t, 1, s.CacheStats()[cache.StringToDate])

	for _, bad := range []string{"", "2024-03", "2024/03/15", "2024-xx-15", "2024-03-15-01"} {
		_, err := c.ParseDateParts(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
	assert.Equal(t, 1, s.CacheStats()[cache.StringToDate], "failures are not cached")
}

func TestDayOfWeek(t *testing.T) {
	c, s := newCalc()

	cases := map[string]int{
		"2024-03-03": 0, // Sunday
		"2024-03-01": 5,
		"2024-02-29": 4,
		"2023-12-31": 0,
		"1900-01-01": 1,
		"2000-02-29": 2,
	}
	for iso, want := range cases {
		got, err := c.DayOfWeek(iso)
		require.NoError(t, err, iso)
		assert.Equal(t, want, got, iso)
	}
	assert.Equal(t, len(cases), s.CacheStats()[cache.DayOfWeek])

	_, err := c.DayOfWeek("not-a-date")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDayOfWeek_NormalizesOverflow(t *testing.T) {
	c, _ := newCalc()

	// 2024-02-30 rolls to 2024-03-01, a Friday.
	got, err := c.DayOfWeek("2024-02-30")
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestDayOfMonth(t *testing.T) {
	c, _ := newCalc()

	d, err := c.DayOfMonth("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, 9, d)

	_, err = c.DayOfMonth("2024-03")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDaysInMonth(t *testing.T) {
	c, _ := newCalc()

	cases := []struct {
		year, month, want int
	}{
		{2024, 1, 29},
		{2023, 1, 28},
		{1900, 1, 28},
		{2000, 1, 29},
		{2024, 0, 31},
		{2024, 3, 30},
		{2024, 11, 31},
		{2024, -1, 31}, // December 2023
		{2024, 12, 31}, // January 2025
		{2025, 13, 28}, // February 2026
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.DaysInMonth(tc.year, tc.month), "%d-%d", tc.year, tc.month)
	}
}

func TestMonthName(t *testing.T) {
	c, s := newCalc()

	assert.Equal(t, "January", c.MonthName(0))
	assert.Equal(t, "December", c.MonthName(11))
	assert.Equal(t, "Unknown", c.MonthName(12))
	assert.Equal(t, "Unknown", c.MonthName(-1))
	assert.Equal(t, "January", c.MonthName(0))
	assert.Equal(t, 4, s.CacheStats()[cache.MonthName])
}

func TestMonthIndexAndYear(t *testing.T) {
	c, s := newCalc()
	d := time.Date(2024, time.July, 4, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, 6, c.MonthIndex(d))
	assert.Equal(t, 2024, c.Year(d))
	assert.Equal(t, 1, s.CacheStats()[cache.MonthFromDate])
	assert.Equal(t, 1, s.CacheStats()[cache.YearFromDate])
}

func TestAddMonths(t *testing.T) {
	d := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-02", ToISOString(AddMonths(d, 1)))
	assert.Equal(t, "2023-12-31", ToISOString(AddMonths(d, -1)))
	assert.Equal(t, "2025-01-31", ToISOString(AddMonths(d, 12)))
}

func TestFirstOfMonth(t *testing.T) {
	assert.Equal(t, "2024-02-01", ToISOString(FirstOfMonth(2024, 1)))
	assert.Equal(t, "2025-01-01", ToISOString(FirstOfMonth(2024, 12)))
	assert.Equal(t, "2023-12-01", ToISOString(FirstOfMonth(2024, -1)))
}

func TestToISOString_UsesOwnLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	d := time.Date(2024, time.March, 1, 2, 0, 0, 0, loc)

	assert.Equal(t, "2024-03-01", ToISOString(d))
}
