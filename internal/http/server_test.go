package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecal/internal/cache"
	"tradecal/internal/calendar"
	"tradecal/internal/core"
	"tradecal/internal/middleware/ratelimit"
	"tradecal/internal/tradedata/memory"
)

var fixedNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, *cache.Store) {
	t.Helper()
	store := cache.New()
	reader := memory.New(map[string]core.MonthEntry{
		"2024-03": {Month: "March", Year: 2024, Days: []core.DayEntry{
			{Date: "2024-03-01", PnL: 250.5, TradeCount: 3, HasNotes: true},
			{Date: "2024-03-04", PnL: -120, TradeCount: 1},
		}},
		"2024-10": {Month: "October", Year: 2024, Days: []core.DayEntry{
			{Date: "2024-10-01", PnL: 10, TradeCount: 1},
		}},
	})
	svc := calendar.NewService(store, reader, calendar.WithLatency(0))
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	srv := NewServer(":0", store, svc, nil, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestReady_Failing(t *testing.T) {
	srv, _ := newTestServer(t, WithReadiness(func(context.Context) error {
		return errors.New("database locked")
	}))

	rr := do(t, srv, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCalendar(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/calendar?year=2024&month=2")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	resp := decode[calendarResponse](t, rr)
	assert.Equal(t, "March", resp.Month)
	assert.Equal(t, 2, resp.MonthIndex)
	assert.Equal(t, 2024, resp.Year)
	assert.True(t, resp.HasData)
	assert.Equal(t, 0.0, resp.MonthlyPnL)
	require.Len(t, resp.Weeks, 6)

	first := resp.Weeks[0].Days[5]
	assert.Equal(t, "2024-03-01", first.Date)
	assert.True(t, first.InMonth)
	assert.Equal(t, 250.5, first.PnL)
	assert.Equal(t, "$250.50", first.PnLDisplay)
	assert.Equal(t, "positive", first.PnLClass)
	assert.Equal(t, "3 trades", first.TradesDisplay)
	assert.True(t, first.HasNotes)

	padding := resp.Weeks[0].Days[0]
	assert.Equal(t, "2024-02-25", padding.Date)
	assert.False(t, padding.InMonth)
	assert.Equal(t, "$0.00", padding.PnLDisplay)
	assert.Equal(t, "neutral", padding.PnLClass)

	loss := resp.Weeks[1].Days[1]
	assert.Equal(t, "2024-03-04", loss.Date)
	assert.Equal(t, "-$120.00", loss.PnLDisplay)
	assert.Equal(t, "negative", loss.PnLClass)
	assert.Equal(t, "1 trade", loss.TradesDisplay)

	assert.Equal(t, 130.5, resp.Summary.PnL)
	assert.Equal(t, "$130.50", resp.Summary.PnLDisplay)
	assert.Equal(t, 4, resp.Summary.Trades)
	assert.Equal(t, 2, resp.Summary.TradingDays)
}

func TestCalendar_DefaultsToCurrentMonth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := decode[calendarResponse](t, do(t, srv, http.MethodGet, "/api/calendar"))
	assert.Equal(t, "March", resp.Month)
	assert.Equal(t, 2024, resp.Year)
}

func TestCalendar_MonthWithoutData(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/calendar?year=2024&month=0")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[calendarResponse](t, rr)
	assert.False(t, resp.HasData)
	assert.Equal(t, "January", resp.Month)
	assert.Len(t, resp.Weeks, 5)
	assert.Equal(t, "0 trades", resp.Summary.TradesDisplay)
}

func TestCalendar_BadParams(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, q := range []string{"?month=12", "?month=-1", "?month=x", "?year=0", "?year=abc"} {
		rr := do(t, srv, http.MethodGet, "/api/calendar"+q)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
		body := decode[map[string]string](t, rr)
		assert.NotEmpty(t, body["error"])
	}
}

func TestCalendarData(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/calendar/data?year=2024&month=2")
	require.Equal(t, http.StatusOK, rr.Code)
	data := decode[core.CalendarData](t, rr)
	assert.Equal(t, "March", data.Month)
	require.Len(t, data.Days, 2)
	assert.Equal(t, 1, data.Days[0].DayOfMonth)
	assert.Equal(t, 5, data.Days[0].DayOfWeek)
	assert.Empty(t, data.Weeks)

	rr = do(t, srv, http.MethodGet, "/api/calendar/data?year=2023&month=2")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLatest(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/calendar/latest")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[latestResponse](t, rr)
	assert.Equal(t, 2024, resp.Year)
	assert.Equal(t, 9, resp.Month)
	assert.Equal(t, "October", resp.MonthName)
	assert.Equal(t, "2024-10", resp.Key)
}

func TestCacheStatsAndClear(t *testing.T) {
	srv, store := newTestServer(t)

	do(t, srv, http.MethodGet, "/api/calendar?year=2024&month=2")
	stats := decode[cacheStatsResponse](t, do(t, srv, http.MethodGet, "/api/cache/stats"))
	assert.Equal(t, 1, stats.Categories["calendar-data"])
	assert.Equal(t, 1, stats.Categories["empty-calendar"])
	assert.Positive(t, stats.Categories["date-to-string"])
	assert.Len(t, stats.Categories, len(cache.Categories()))

	rr := do(t, srv, http.MethodPost, "/api/cache/clear")
	require.Equal(t, http.StatusOK, rr.Code)
	after := store.CacheStats()
	assert.Equal(t, 0, after[cache.CalendarData])
	assert.Equal(t, 0, after[cache.EmptyCalendar])
	assert.Positive(t, after[cache.DateToString], "date caches survive a calendar clear")
}

func TestCacheClear_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/cache/clear")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCacheReset(t *testing.T) {
	srv, store := newTestServer(t)
	do(t, srv, http.MethodGet, "/api/calendar?year=2024&month=2")
	do(t, srv, http.MethodGet, "/api/calendar?year=2024&month=9")

	rr := do(t, srv, http.MethodPost, "/api/cache/reset?category=calendar-data&entity=2024-9")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[resetResponse](t, rr)
	require.NotNil(t, resp.Removed)
	assert.Equal(t, 1, *resp.Removed)
	assert.Equal(t, 1, store.CacheStats()[cache.CalendarData])

	rr = do(t, srv, http.MethodPost, "/api/cache/reset?category=month-name,pnl-class")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"month-name", "pnl-class"}, decode[resetResponse](t, rr).Categories)
	assert.Equal(t, 0, store.CacheStats()[cache.MonthName])

	rr = do(t, srv, http.MethodPost, "/api/cache/reset")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, store.CacheStats().Total())

	rr = do(t, srv, http.MethodPost, "/api/cache/reset?category=bogus")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCacheEndpoints_RateLimited(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(ratelimit.Config{RequestsPerMinute: 2}))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/cache/clear").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/cache/clear").Code)
	rr := do(t, srv, http.MethodPost, "/api/cache/clear")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/cache/stats").Code, "reads are not limited")
}

func TestProxyList_ClientIP(t *testing.T) {
	proxies := mustParseProxyList(DefaultTrustedProxies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.5")
	assert.Equal(t, "203.0.113.7", proxies.clientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", proxies.clientIP(req))

	req.RemoteAddr = "198.51.100.1:1234"
	assert.Equal(t, "198.51.100.1", proxies.clientIP(req), "untrusted peer cannot spoof")

	only, err := parseProxyList([]string{" 198.51.100.0/24 ", ""})
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", only.clientIP(req))

	_, err = parseProxyList([]string{"not-a-cidr"})
	assert.Error(t, err)
}
