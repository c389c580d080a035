// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request
// parameters shared by the calendar and cache endpoints.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradecal/internal/cache"
)

// MonthParams holds parsed year and zero-based month values.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and zero-based month from query parameters,
// using the month of now for missing values. Present values must be integers;
// the month must lie in 0..11 and the year in 1..9999.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()) - 1,
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, fmt.Errorf("invalid year %q", v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 || m > 11 {
			return MonthParams{}, fmt.Errorf("invalid month %q: expected 0-11", v)
		}
		params.Month = m
	}

	return params, nil
}

// ResetParams describes a cache reset request.
type ResetParams struct {
	Categories []cache.Category
	Entity     string
}

// ParseResetParams reads the repeatable "category" parameter and the optional
// "entity" key prefix. No categories means every category.
func ParseResetParams(query url.Values) (ResetParams, error) {
	var params ResetParams
	for _, raw := range query["category"] {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			c, err := cache.ParseCategory(name)
			if err != nil {
				return ResetParams{}, err
			}
			params.Categories = append(params.Categories, c)
		}
	}
	params.Entity = strings.TrimSpace(query.Get("entity"))
	return params, nil
}
