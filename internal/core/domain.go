package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type (
	// Day is one cell of a calendar grid. Padding days outside the month
	// carry the same shape with zero values.
	Day struct {
		Date       string  `json:"date"`
		DayOfMonth int     `json:"dayOfMonth"`
		DayOfWeek  int     `json:"dayOfWeek"` // 0=Sunday..6=Saturday
		PnL        float64 `json:"pnl"`
		TradeCount int     `json:"tradeCount"`
		HasNotes   bool    `json:"hasNotes"`
	}

	// DayEntry is a raw day record as stored by a trade data source.
	DayEntry struct {
		Date       string  `json:"date"`
		PnL        float64 `json:"pnl"`
		TradeCount int     `json:"tradeCount"`
		HasNotes   bool    `json:"hasNotes"`
	}

	WeekSummary struct {
		WeekNumber     int     `json:"weekNumber"` // 1-based
		WeekPnL        float64 `json:"weekPnL"`
		WeekTradeCount int     `json:"weekTradeCount"`
	}

	WeekData struct {
		WeekNumber     int     `json:"weekNumber"`
		Days           []Day   `json:"days"`
		WeekPnL        float64 `json:"weekPnL"`
		WeekTradeCount int     `json:"weekTradeCount"`
	}

	CalendarData struct {
		Month      string        `json:"month"`
		Year       int           `json:"year"`
		MonthlyPnL float64       `json:"monthlyPnL"`
		Days       []Day         `json:"days"`
		Weeks      []WeekSummary `json:"weeks"`
	}

	// MonthEntry is the stored record for one month, keyed by MonthKey.
	MonthEntry struct {
		Month string     `json:"month"`
		Year  int        `json:"year"`
		Days  []DayEntry `json:"days"`
	}
)

var (
	ErrInvalidMonthKey = errors.New("invalid month key")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidPnL      = errors.New("invalid pnl amount")
	ErrInvalidDate     = errors.New("invalid date")
)

// Clone returns a deep copy so cached values are never mutated through
// a caller's slice.
func (c CalendarData) Clone() CalendarData {
	out := c
	out.Days = append([]Day(nil), c.Days...)
	out.Weeks = append([]WeekSummary(nil), c.Weeks...)
	return out
}

func (e MonthEntry) Validate() error {
	if e.Year <= 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidMonth, e.Year)
	}
	for i, d := range e.Days {
		if strings.TrimSpace(d.Date) == "" {
			return fmt.Errorf("%w: day %d has no date", ErrInvalidDate, i)
		}
		if d.TradeCount < 0 {
			return fmt.Errorf("day %s: negative trade count", d.Date)
		}
	}
	return nil
}

// MonthKey returns the storage key "YYYY-MM" for a zero-based month.
func MonthKey(year, month0 int) string {
	return fmt.Sprintf("%d-%02d", year, month0+1)
}

// ParseMonthKey parses "YYYY-MM" and returns the year and zero-based month.
func ParseMonthKey(key string) (year, month0 int, err error) {
	y, m, ok := strings.Cut(strings.TrimSpace(key), "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	year, err = strconv.Atoi(y)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	return year, month - 1, nil
}

// CacheKey returns the "{year}-{month}" key used for per-month derived
// values. The month is zero-based and not padded.
func CacheKey(year, month0 int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month0)
}
