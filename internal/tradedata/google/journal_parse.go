package google

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"tradecal/internal/core"
)

var dateLayouts = []string{
	time.DateOnly,
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
}

// parseJournal groups journal rows by month. The first row holding a "Date"
// cell is the header; rows before it are ignored. Several rows with the same
// date are merged: P&L and trades add up and notes on any row mark the day.
// A row with an empty Trades cell counts as one trade.
func parseJournal(values [][]interface{}) (map[string]core.MonthEntry, error) {
	header := -1
	var dateIdx, pnlIdx, tradesIdx, notesIdx int
	for i, row := range values {
		cols := toStrings(row)
		if idx := indexOf(cols, "Date"); idx >= 0 {
			header = i
			dateIdx = idx
			pnlIdx = indexOfAny(cols, "PnL", "P&L", "Profit")
			tradesIdx = indexOfAny(cols, "Trades", "Trade Count")
			notesIdx = indexOf(cols, "Notes")
			break
		}
	}
	if header < 0 {
		return nil, fmt.Errorf("journal header with a Date column not found")
	}
	if pnlIdx < 0 {
		return nil, fmt.Errorf("journal header has no PnL column")
	}

	byDate := map[string]*core.DayEntry{}
	for i, row := range values[header+1:] {
		cols := toStrings(row)
		rawDate := safeGet(cols, dateIdx)
		if rawDate == "" {
			continue
		}
		date, err := parseJournalDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", header+i+2, err)
		}
		pnl, err := core.ParsePnL(safeGet(cols, pnlIdx))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w: %q", header+i+2, err, safeGet(cols, pnlIdx))
		}
		trades := 1
		if s := safeGet(cols, tradesIdx); s != "" {
			trades, err = strconv.Atoi(s)
			if err != nil || trades < 0 {
				return nil, fmt.Errorf("row %d: invalid trade count %q", header+i+2, s)
			}
		}

		iso := date.Format(time.DateOnly)
		day, ok := byDate[iso]
		if !ok {
			day = &core.DayEntry{Date: iso}
			byDate[iso] = day
		}
		day.PnL += pnl
		day.TradeCount += trades
		day.HasNotes = day.HasNotes || safeGet(cols, notesIdx) != ""
	}

	months := map[string]core.MonthEntry{}
	isos := make([]string, 0, len(byDate))
	for iso := range byDate {
		isos = append(isos, iso)
	}
	sort.Strings(isos)
	for _, iso := range isos {
		t, _ := time.Parse(time.DateOnly, iso)
		key := core.MonthKey(t.Year(), int(t.Month())-1)
		entry, ok := months[key]
		if !ok {
			entry = core.MonthEntry{Month: t.Month().String(), Year: t.Year()}
		}
		day := *byDate[iso]
		day.PnL = roundCents(day.PnL)
		entry.Days = append(entry.Days, day)
		months[key] = entry
	}
	return months, nil
}

func parseJournalDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

func roundCents(v float64) float64 {
	return float64(core.Cents(v)) / 100
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func indexOfAny(arr []string, targets ...string) int {
	for _, t := range targets {
		if idx := indexOf(arr, t); idx >= 0 {
			return idx
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
