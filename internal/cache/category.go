package cache

import "fmt"

// Category identifies one memoization table. Categories never share keys.
type Category int

const (
	StringToDate Category = iota
	DateToString
	MonthName
	DayOfWeek
	DaysInMonth
	MonthFromDate
	YearFromDate
	CurrencyFormat
	PnLClass
	TradeCountFormat
	CalendarData
	EmptyCalendar

	numCategories
)

var categoryNames = [numCategories]string{
	StringToDate:     "string-to-date",
	DateToString:     "date-to-string",
	MonthName:        "month-name",
	DayOfWeek:        "day-of-week",
	DaysInMonth:      "days-in-month",
	MonthFromDate:    "month-from-date",
	YearFromDate:     "year-from-date",
	CurrencyFormat:   "currency-format",
	PnLClass:         "pnl-class",
	TradeCountFormat: "trade-count-format",
	CalendarData:     "calendar-data",
	EmptyCalendar:    "empty-calendar",
}

// String implements fmt.Stringer
func (c Category) String() string {
	if !c.IsValid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// IsValid returns true if c is one of the declared categories
func (c Category) IsValid() bool {
	return c >= 0 && c < numCategories
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, 0, numCategories)
	for c := Category(0); c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

// ParseCategory maps a category name (as returned by String) back to its value.
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return Category(c), nil
		}
	}
	return 0, fmt.Errorf("unknown cache category %q", name)
}
