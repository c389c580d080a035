package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_FixedWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2, CleanupInterval: time.Hour})
	defer rl.Stop()
	now := time.Date(2024, 9, 3, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "clients are limited independently")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"), "new window")

	m := rl.GetMetrics()
	assert.Equal(t, int64(1), m.TotalHits)
	assert.Equal(t, int64(2), m.ClientCount)
}

func TestCleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5, CleanupInterval: time.Hour})
	defer rl.Stop()
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(11 * time.Minute)
	rl.Allow("b")
	rl.cleanupStaleEntries()

	assert.Equal(t, int64(1), rl.GetMetrics().ClientCount)
}

func TestMiddleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour})
	defer rl.Stop()
	h := rl.Middleware(func(*http.Request) string { return "c" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestReserve_RetryAfter(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, Window: 10 * time.Second, CleanupInterval: time.Hour})
	defer rl.Stop()
	now := time.Date(2024, 9, 3, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Reserve("c")
	assert.True(t, ok)

	now = now.Add(3500 * time.Millisecond)
	ok, retry := rl.Reserve("c")
	assert.False(t, ok)
	assert.Equal(t, 6500*time.Millisecond, retry)
	assert.Equal(t, 7, retrySeconds(retry))
	assert.Equal(t, 1, retrySeconds(0))

	now = now.Add(7 * time.Second)
	ok, _ = rl.Reserve("c")
	assert.True(t, ok, "window of ten seconds has passed")
}
