// Package format renders calendar values for display. Every result is
// memoized in the shared cache store.
package format

import (
	"math"
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"tradecal/internal/cache"
)

// P&L classes returned by PnLClass.
const (
	ClassPositive = "positive"
	ClassNegative = "negative"
	ClassNeutral  = "neutral"
)

type Formatter struct {
	store *cache.Store
}

// New creates a Formatter backed by store.
func New(store *cache.Store) *Formatter {
	return &Formatter{store: store}
}

// Currency renders amount in US dollars with two fraction digits and
// thousands separators. Losses are prefixed with a minus sign: -$1,234.50.
func (f *Formatter) Currency(amount float64) string {
	key := strconv.FormatFloat(amount, 'g', -1, 64)
	return cache.Load(f.store, cache.CurrencyFormat, key, func() string {
		return currency(amount)
	})
}

func currency(amount float64) string {
	switch {
	case math.IsNaN(amount):
		return "NaN"
	case math.IsInf(amount, 1):
		return "$∞"
	case math.IsInf(amount, -1):
		return "-$∞"
	}

	cents := decimal.NewFromFloat(amount).Abs().Round(2).Shift(2).IntPart()
	formatted := money.New(cents, money.USD).Display()
	if amount < 0 {
		return "-" + formatted
	}
	return formatted
}

// PnLClass maps a P&L to positive, negative or neutral. Results are cached
// per sign so every positive amount shares one entry.
func (f *Formatter) PnLClass(pnl float64) string {
	bucket := sign(pnl)
	return cache.Load(f.store, cache.PnLClass, strconv.Itoa(bucket), func() string {
		switch bucket {
		case 1:
			return ClassPositive
		case -1:
			return ClassNegative
		default:
			return ClassNeutral
		}
	})
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// TradeCount renders n with a pluralized unit: "1 trade", "2 trades".
func (f *Formatter) TradeCount(n int) string {
	return cache.Load(f.store, cache.TradeCountFormat, strconv.Itoa(n), func() string {
		if n == 1 {
			return "1 trade"
		}
		return strconv.Itoa(n) + " trades"
	})
}
