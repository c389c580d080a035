package calendar

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecal/internal/cache"
	"tradecal/internal/core"
	"tradecal/internal/format"
	"tradecal/internal/tradedata/memory"
)

type countingReader struct {
	*memory.Store
	reads atomic.Int32
	fail  atomic.Bool
}

func (r *countingReader) ReadMonth(ctx context.Context, key string) (*core.MonthEntry, error) {
	r.reads.Add(1)
	if r.fail.Load() {
		return nil, errors.New("source unavailable")
	}
	return r.Store.ReadMonth(ctx, key)
}

func fixtureReader() *countingReader {
	return &countingReader{Store: memory.New(map[string]core.MonthEntry{
		"2024-03": {Month: "March", Year: 2024, Days: []core.DayEntry{
			{Date: "2024-03-01", PnL: 250.5, TradeCount: 3, HasNotes: true},
			{Date: "2024-03-04", PnL: -120, TradeCount: 1},
		}},
		"2024-10": {Month: "October", Year: 2024, Days: []core.DayEntry{
			{Date: "2024-10-01", PnL: 10, TradeCount: 1},
		}},
		"2025-01": {Month: "January", Year: 2025, Days: []core.DayEntry{
			{Date: "2025-01-02", PnL: 75, TradeCount: 2},
		}},
	})}
}

func newTestService(opts ...Option) (*Service, *cache.Store, *countingReader) {
	store := cache.New()
	reader := fixtureReader()
	opts = append([]Option{WithLatency(0)}, opts...)
	return NewService(store, reader, opts...), store, reader
}

func TestFetchCalendarData(t *testing.T) {
	svc, _, _ := newTestService()

	data, err := svc.FetchCalendarData(context.Background(), 2024, 2)
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, "March", data.Month)
	assert.Equal(t, 2024, data.Year)
	assert.Equal(t, 0.0, data.MonthlyPnL)
	assert.Empty(t, data.Weeks)
	require.Len(t, data.Days, 2)
	assert.Equal(t, core.Day{Date: "2024-03-01", DayOfMonth: 1, DayOfWeek: 5, PnL: 250.5, TradeCount: 3, HasNotes: true}, data.Days[0])
	assert.Equal(t, 1, data.Days[1].DayOfWeek)
	assert.Equal(t, 4, data.Days[1].DayOfMonth)
}

func TestFetchCalendarData_MissingMonthAfterLatency(t *testing.T) {
	const latency = 30 * time.Millisecond
	svc, _, _ := newTestService(WithLatency(latency))

	start := time.Now()
	data, err := svc.FetchCalendarData(context.Background(), 2099, 0)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.GreaterOrEqual(t, time.Since(start), latency)
}

func TestFetchCalendarData_CachedPerMonth(t *testing.T) {
	svc, store, reader := newTestService()
	ctx := context.Background()

	_, err := svc.FetchCalendarData(ctx, 2024, 2)
	require.NoError(t, err)
	_, err = svc.FetchCalendarData(ctx, 2024, 2)
	require.NoError(t, err)
	_, err = svc.FetchCalendarData(ctx, 2099, 0)
	require.NoError(t, err)
	_, err = svc.FetchCalendarData(ctx, 2099, 0)
	require.NoError(t, err)

	assert.Equal(t, int32(2), reader.reads.Load(), "absent months are cached too")
	assert.Equal(t, 2, store.CacheStats()[cache.CalendarData])
}

func TestFetchCalendarData_ConcurrentCallersShareRead(t *testing.T) {
	svc, _, reader := newTestService(WithLatency(20 * time.Millisecond))

	var wg sync.WaitGroup
	results := make([]*core.CalendarData, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := svc.FetchCalendarData(context.Background(), 2024, 2)
			assert.NoError(t, err)
			results[i] = d
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), reader.reads.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Days, r.Days)
	}
}

func TestFetchCalendarData_ReturnsCopies(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.FetchCalendarData(ctx, 2024, 2)
	require.NoError(t, err)
	first.Days[0].PnL = -1

	second, err := svc.FetchCalendarData(ctx, 2024, 2)
	require.NoError(t, err)
	assert.Equal(t, 250.5, second.Days[0].PnL)
}

func TestFetchCalendarData_ErrorNotCached(t *testing.T) {
	svc, store, reader := newTestService()
	ctx := context.Background()

	reader.fail.Store(true)
	_, err := svc.FetchCalendarData(ctx, 2024, 2)
	require.Error(t, err)
	assert.Equal(t, 0, store.CacheStats()[cache.CalendarData])

	reader.fail.Store(false)
	data, err := svc.FetchCalendarData(ctx, 2024, 2)
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestFetchCalendarData_InvalidStoredDate(t *testing.T) {
	store := cache.New()
	reader := memory.New(map[string]core.MonthEntry{
		"2024-05": {Month: "May", Year: 2024, Days: []core.DayEntry{{Date: "2024-05"}}},
	})
	svc := NewService(store, reader, WithLatency(0))

	_, err := svc.FetchCalendarData(context.Background(), 2024, 4)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestClearCalendarCaches_KeepsOtherCategories(t *testing.T) {
	svc, store, _ := newTestService()
	f := format.New(store)

	svc.GenerateEmptyCalendar(2024, 2)
	_, err := svc.FetchCalendarData(context.Background(), 2024, 2)
	require.NoError(t, err)
	f.Currency(12.5)

	before := store.CacheStats()
	require.Positive(t, before[cache.DateToString])
	require.Positive(t, before[cache.DayOfWeek])

	svc.ClearCalendarCaches()
	after := store.CacheStats()
	assert.Equal(t, 0, after[cache.CalendarData])
	assert.Equal(t, 0, after[cache.EmptyCalendar])
	for _, c := range cache.Categories() {
		if c == cache.CalendarData || c == cache.EmptyCalendar {
			continue
		}
		assert.Equal(t, before[c], after[c], c.String())
	}
}

func TestClearCalendarCaches_RereadsData(t *testing.T) {
	svc, _, reader := newTestService()
	ctx := context.Background()

	_, err := svc.FetchCalendarData(ctx, 2024, 2)
	require.NoError(t, err)
	require.NoError(t, reader.ReplaceMonth(ctx, "2024-03", core.MonthEntry{
		Month: "March", Year: 2024, Days: []core.DayEntry{{Date: "2024-03-15", PnL: 1}},
	}))

	stale, err := svc.FetchCalendarData(ctx, 2024, 2)
	require.NoError(t, err)
	assert.Len(t, stale.Days, 2)

	svc.ClearCalendarCaches()
	fresh, err := svc.FetchCalendarData(ctx, 2024, 2)
	require.NoError(t, err)
	require.Len(t, fresh.Days, 1)
	assert.Equal(t, "2024-03-15", fresh.Days[0].Date)
}

func TestInvalidateYear(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	for _, ym := range []YearMonth{{2024, 2}, {2024, 9}, {2025, 0}} {
		svc.GenerateEmptyCalendar(ym.Year, ym.Month)
		_, err := svc.FetchCalendarData(ctx, ym.Year, ym.Month)
		require.NoError(t, err)
	}

	removed := svc.InvalidateYear(2024)
	assert.Equal(t, 4, removed)
	stats := store.CacheStats()
	assert.Equal(t, 1, stats[cache.CalendarData])
	assert.Equal(t, 1, stats[cache.EmptyCalendar])
}

func TestApplyRefresh(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	for _, ym := range []YearMonth{{2024, 0}, {2024, 9}} {
		svc.GenerateEmptyCalendar(ym.Year, ym.Month)
		_, err := svc.FetchCalendarData(ctx, ym.Year, ym.Month)
		require.NoError(t, err)
	}

	// "2024-01" maps to cache key "2024-0"; "2024-10" (key "2024-9") stays.
	svc.ApplyRefresh([]string{"2024-01"})
	stats := store.CacheStats()
	assert.Equal(t, 1, stats[cache.CalendarData])
	assert.Equal(t, 2, stats[cache.EmptyCalendar])

	svc.ApplyRefresh([]string{"garbage"})
	stats = store.CacheStats()
	assert.Equal(t, 0, stats[cache.CalendarData])
	assert.Equal(t, 0, stats[cache.EmptyCalendar])

	svc.GenerateEmptyCalendar(2024, 0)
	svc.ApplyRefresh(nil)
	assert.Equal(t, 0, store.CacheStats()[cache.EmptyCalendar])
}

func TestLatestDataMonth(t *testing.T) {
	svc, _, _ := newTestService()

	ym, err := svc.LatestDataMonth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, YearMonth{Year: 2025, Month: 0}, ym)
}

func TestLatestDataMonth_EmptyFallsBackToNow(t *testing.T) {
	now := time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)
	svc := NewService(cache.New(), memory.New(nil), WithLatency(0), WithClock(func() time.Time { return now }))

	ym, err := svc.LatestDataMonth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, YearMonth{Year: 2026, Month: 9}, ym)
}

func TestMonthView(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	view, found, err := svc.MonthView(ctx, 2024, 2)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, view.Days, 42)
	// March 1st 2024 sits after five days of February padding.
	assert.Equal(t, "2024-03-01", view.Days[5].Date)
	assert.Equal(t, 250.5, view.Days[5].PnL)
	assert.True(t, view.Days[5].HasNotes)

	empty, found, err := svc.MonthView(ctx, 2099, 0)
	require.NoError(t, err)
	assert.False(t, found)
	for _, d := range empty.Days {
		assert.Zero(t, d.PnL)
	}
}

func TestPrefetch(t *testing.T) {
	svc, store, reader := newTestService()

	months := []YearMonth{{2024, 2}, {2024, 9}, {2025, 0}, {2099, 5}}
	require.NoError(t, svc.Prefetch(context.Background(), months))

	stats := store.CacheStats()
	assert.Equal(t, 4, stats[cache.CalendarData])
	assert.Equal(t, 4, stats[cache.EmptyCalendar])
	assert.Equal(t, int32(4), reader.reads.Load())

	reader.fail.Store(true)
	svc.ClearCalendarCaches()
	assert.Error(t, svc.Prefetch(context.Background(), months))
}

func TestRecentMonths(t *testing.T) {
	got := RecentMonths(YearMonth{Year: 2025, Month: 1}, 4)
	assert.Equal(t, []YearMonth{{2024, 10}, {2024, 11}, {2025, 0}, {2025, 1}}, got)
	assert.Empty(t, RecentMonths(YearMonth{Year: 2025, Month: 1}, 0))
}
