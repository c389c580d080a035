// Package core provides the calendar domain types and P&L amount parsing.
//
// This file contains functions for parsing profit/loss amounts from the
// textual forms used in trading journals.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePnL converts a journal amount to a float rounded to cents.
//
// It accepts an optional currency symbol, thousands separators and either a
// leading minus sign or accounting parentheses for losses. Rounding is
// half away from zero on the third decimal place. An empty string is zero.
//
// Examples:
//
//	ParsePnL("1,234.50")  -> 1234.5, nil
//	ParsePnL("-$87.125")  -> -87.13, nil
//	ParsePnL("(42)")      -> -42, nil
func ParsePnL(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		if negative {
			return 0, ErrInvalidPnL
		}
		negative = true
		s = strings.TrimSpace(s[1:])
	} else if strings.HasPrefix(s, "+") {
		s = strings.TrimSpace(s[1:])
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidPnL
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidPnL
	}
	d = d.Round(2)
	if negative {
		d = d.Neg()
	}
	f, _ := d.Float64()
	return f, nil
}

// Cents returns the amount as whole cents, rounded half away from zero.
func Cents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Round(2).Shift(2).IntPart()
}
