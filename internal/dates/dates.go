// Package dates provides memoized calendar arithmetic over ISO date strings
// and zero-based month indices.
package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradecal/internal/cache"
	"tradecal/internal/core"
)

// ErrInvalidDate is returned for date strings that are not "YYYY-MM-DD".
var ErrInvalidDate = core.ErrInvalidDate

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Parts holds the components of an ISO date. Month is zero-based.
type Parts struct {
	Year  int
	Month int
	Day   int
}

// Time returns the UTC midnight of the parts, normalizing overflowing
// components the way time.Date does.
func (p Parts) Time() time.Time {
	return Date(p.Year, p.Month, p.Day)
}

// Calc routes every computation through the shared memoization store.
type Calc struct {
	store *cache.Store
}

// New creates a Calc backed by store.
func New(store *cache.Store) *Calc {
	return &Calc{store: store}
}

// Date returns UTC midnight for a zero-based month. Month and day overflow
// roll into adjacent months and years.
func Date(year, month0, day int) time.Time {
	return time.Date(year, time.Month(month0+1), day, 0, 0, 0, 0, time.UTC)
}

// CreateISODate formats year, zero-based month and day as "YYYY-MM-DD".
func (c *Calc) CreateISODate(year, month0, day int) string {
	key := fmt.Sprintf("%d-%d-%d", year, month0, day)
	return cache.Load(c.store, cache.DateToString, key, func() string {
		return fmt.Sprintf("%d-%02d-%02d", year, month0+1, day)
	})
}

// ParseDateParts splits an ISO date into year, zero-based month and day.
// Components are not range checked.
func (c *Calc) ParseDateParts(iso string) (Parts, error) {
	return cache.LoadE(c.store, cache.StringToDate, iso, func() (Parts, error) {
		return parseParts(iso)
	})
}

func parseParts(iso string) (Parts, error) {
	fields := strings.Split(iso, "-")
	if len(fields) != 3 {
		return Parts{}, fmt.Errorf("%w: %q", ErrInvalidDate, iso)
	}
	var nums [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Parts{}, fmt.Errorf("%w: %q: %w", ErrInvalidDate, iso, err)
		}
		nums[i] = n
	}
	return Parts{Year: nums[0], Month: nums[1] - 1, Day: nums[2]}, nil
}

// DayOfWeek returns 0 for Sunday through 6 for Saturday.
func (c *Calc) DayOfWeek(iso string) (int, error) {
	return cache.LoadE(c.store, cache.DayOfWeek, iso, func() (int, error) {
		p, err := c.ParseDateParts(iso)
		if err != nil {
			return 0, err
		}
		return int(p.Time().Weekday()), nil
	})
}

// DayOfMonth returns the day component of an ISO date.
func (c *Calc) DayOfMonth(iso string) (int, error) {
	p, err := c.ParseDateParts(iso)
	if err != nil {
		return 0, err
	}
	return p.Day, nil
}

// DaysInMonth returns the number of days of a zero-based month. Month -1 is
// December of the previous year and month 12 is January of the next.
func (c *Calc) DaysInMonth(year, month0 int) int {
	key := strconv.Itoa(year) + "-" + strconv.Itoa(month0)
	return cache.Load(c.store, cache.DaysInMonth, key, func() int {
		// Day 0 of the following month is the last day of this one.
		return Date(year, month0+1, 0).Day()
	})
}

// MonthName returns the English name of a zero-based month, or "Unknown".
func (c *Calc) MonthName(month0 int) string {
	return cache.Load(c.store, cache.MonthName, strconv.Itoa(month0), func() string {
		if month0 < 0 || month0 >= len(monthNames) {
			return "Unknown"
		}
		return monthNames[month0]
	})
}

// MonthIndex returns the zero-based month of t.
func (c *Calc) MonthIndex(t time.Time) int {
	return cache.Load(c.store, cache.MonthFromDate, ToISOString(t), func() int {
		return int(t.Month()) - 1
	})
}

// Year returns the year of t.
func (c *Calc) Year(t time.Time) int {
	return cache.Load(c.store, cache.YearFromDate, ToISOString(t), func() int {
		return t.Year()
	})
}

// AddMonths shifts t by n months, normalizing overflowing days.
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// FirstOfMonth returns the first day of a zero-based month.
func FirstOfMonth(year, month0 int) time.Time {
	return Date(year, month0, 1)
}

// ToISOString formats t as "YYYY-MM-DD" in t's own location.
func ToISOString(t time.Time) string {
	return t.Format(time.DateOnly)
}
