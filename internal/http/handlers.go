package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tradecal/internal/cache"
	"tradecal/internal/calendar"
	"tradecal/internal/core"
	"tradecal/internal/dates"
	"tradecal/internal/log"
)

type (
	// dayView is a grid day with its display strings.
	dayView struct {
		core.Day
		InMonth       bool   `json:"inMonth"`
		PnLDisplay    string `json:"pnlDisplay"`
		PnLClass      string `json:"pnlClass"`
		TradesDisplay string `json:"tradesDisplay"`
	}

	weekView struct {
		WeekNumber     int       `json:"weekNumber"`
		Days           []dayView `json:"days"`
		WeekPnL        float64   `json:"weekPnL"`
		WeekTradeCount int       `json:"weekTradeCount"`
	}

	// monthSummary totals the in-month days of a grid.
	monthSummary struct {
		PnL           float64 `json:"pnl"`
		PnLDisplay    string  `json:"pnlDisplay"`
		PnLClass      string  `json:"pnlClass"`
		Trades        int     `json:"trades"`
		TradesDisplay string  `json:"tradesDisplay"`
		TradingDays   int     `json:"tradingDays"`
	}

	calendarResponse struct {
		Month      string       `json:"month"`
		MonthIndex int          `json:"monthIndex"`
		Year       int          `json:"year"`
		MonthlyPnL float64      `json:"monthlyPnL"`
		HasData    bool         `json:"hasData"`
		Summary    monthSummary `json:"summary"`
		Weeks      []weekView   `json:"weeks"`
	}

	latestResponse struct {
		calendar.YearMonth
		MonthName string `json:"monthName"`
		Key       string `json:"key"`
	}

	cacheStatsResponse struct {
		Categories map[string]int `json:"categories"`
		Total      int            `json:"total"`
		Hits       int64          `json:"hits"`
		Misses     int64          `json:"misses"`
	}

	resetResponse struct {
		Categories []string `json:"categories"`
		Entity     string   `json:"entity,omitempty"`
		Removed    *int     `json:"removed,omitempty"`
	}
)

// handleCalendar serves the month grid with the month's data overlaid.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	view, found, err := s.calendar.MonthView(ctx, p.Year, p.Month)
	if err != nil {
		s.writeFetchError(w, r, err, p)
		return
	}

	writeJSON(w, r, s.buildCalendarResponse(view, p, found))
}

func (s *Server) buildCalendarResponse(view core.CalendarData, p MonthParams, found bool) calendarResponse {
	monthPrefix := dates.ToISOString(dates.FirstOfMonth(p.Year, p.Month))[:len("2006-01")]

	var sum monthSummary
	weeks := calendar.Weeks(view)
	out := make([]weekView, 0, len(weeks))
	for _, wk := range weeks {
		wv := weekView{
			WeekNumber:     wk.WeekNumber,
			Days:           make([]dayView, 0, len(wk.Days)),
			WeekPnL:        wk.WeekPnL,
			WeekTradeCount: wk.WeekTradeCount,
		}
		for _, d := range wk.Days {
			inMonth := strings.HasPrefix(d.Date, monthPrefix)
			wv.Days = append(wv.Days, dayView{
				Day:           d,
				InMonth:       inMonth,
				PnLDisplay:    s.formatter.Currency(d.PnL),
				PnLClass:      s.formatter.PnLClass(d.PnL),
				TradesDisplay: s.formatter.TradeCount(d.TradeCount),
			})
			if inMonth {
				sum.PnL += d.PnL
				sum.Trades += d.TradeCount
				if d.TradeCount > 0 {
					sum.TradingDays++
				}
			}
		}
		out = append(out, wv)
	}
	sum.PnL = float64(core.Cents(sum.PnL)) / 100
	sum.PnLDisplay = s.formatter.Currency(sum.PnL)
	sum.PnLClass = s.formatter.PnLClass(sum.PnL)
	sum.TradesDisplay = s.formatter.TradeCount(sum.Trades)

	return calendarResponse{
		Month:      view.Month,
		MonthIndex: p.Month,
		Year:       view.Year,
		MonthlyPnL: view.MonthlyPnL,
		HasData:    found,
		Summary:    sum,
		Weeks:      out,
	}
}

// handleCalendarData serves the raw month data, 404 when the month has none.
func (s *Server) handleCalendarData(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	data, err := s.calendar.FetchCalendarData(ctx, p.Year, p.Month)
	if err != nil {
		s.writeFetchError(w, r, err, p)
		return
	}
	if data == nil {
		writeError(w, r, http.StatusNotFound, "no data for "+core.MonthKey(p.Year, p.Month))
		return
	}
	writeJSON(w, r, data)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	ym, err := s.calendar.LatestDataMonth(r.Context())
	if err != nil {
		s.structured.LogError(r.Context(), "Latest month lookup failed", err, log.OpList, nil)
		writeError(w, r, http.StatusInternalServerError, "failed to list months")
		return
	}
	writeJSON(w, r, latestResponse{
		YearMonth: ym,
		MonthName: s.calendar.Dates().MonthName(ym.Month),
		Key:       ym.String(),
	})
}

func (s *Server) writeFetchError(w http.ResponseWriter, r *http.Request, err error, p MonthParams) {
	fields := log.NewFields().WithMonth(p.Year, p.Month)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.structured.LogError(r.Context(), "Month read timed out", err, log.OpRead, fields)
		writeError(w, r, http.StatusGatewayTimeout, "month data read timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		w.WriteHeader(499)
	default:
		s.structured.LogError(r.Context(), "Month read failed", err, log.OpRead, fields)
		writeError(w, r, http.StatusInternalServerError, "failed to read month data")
	}
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := s.store.CacheStats()
	counters := s.store.Counters()
	resp := cacheStatsResponse{
		Categories: make(map[string]int, len(stats)),
		Total:      stats.Total(),
		Hits:       counters.Hits,
		Misses:     counters.Misses,
	}
	for c, n := range stats {
		resp.Categories[c.String()] = n
	}
	writeJSON(w, r, resp)
}

// handleCacheClear drops the calendar grid and month data caches.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.calendar.ClearCalendarCaches()
	names := categoryNames([]cache.Category{cache.CalendarData, cache.EmptyCalendar})
	s.structured.LogCacheReset(r.Context(), log.OpRefresh, names, -1)
	writeJSON(w, r, resetResponse{Categories: names})
}

// handleCacheReset resets whole categories, or with ?entity= only the keys
// starting with that prefix.
func (s *Server) handleCacheReset(w http.ResponseWriter, r *http.Request) {
	p, err := ParseResetParams(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	cats := p.Categories
	if len(cats) == 0 {
		cats = cache.Categories()
	}
	names := categoryNames(cats)

	if p.Entity == "" {
		s.store.ResetCache(p.Categories...)
		s.structured.LogCacheReset(r.Context(), log.OpReset, names, -1)
		writeJSON(w, r, resetResponse{Categories: names})
		return
	}

	removed := s.store.ResetCacheForEntity(p.Entity, p.Categories...)
	s.structured.LogCacheReset(r.Context(), log.OpReset, names, removed)
	writeJSON(w, r, resetResponse{Categories: names, Entity: p.Entity, Removed: &removed})
}

func categoryNames(cats []cache.Category) []string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}
	return names
}
