// Package calendar derives month grids and month trading data, memoizing
// both per "{year}-{month}" in the shared cache store.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"tradecal/internal/cache"
	"tradecal/internal/core"
	"tradecal/internal/dates"
	"tradecal/internal/log"
	"tradecal/internal/tradedata"
)

// DefaultLatency is the simulated delay applied before every month read.
const DefaultLatency = 100 * time.Millisecond

const prefetchConcurrency = 4

// YearMonth identifies a month. Month is zero-based.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (ym YearMonth) String() string {
	return core.MonthKey(ym.Year, ym.Month)
}

type Service struct {
	store   *cache.Store
	dates   *dates.Calc
	reader  tradedata.MonthReader
	latency time.Duration
	now     func() time.Time
	logger  *log.Logger
}

type Option func(*Service)

// WithLatency overrides DefaultLatency. Zero disables the delay.
func WithLatency(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.latency = d
		}
	}
}

// WithClock sets the clock used when the reader holds no months.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger.WithComponent(log.ComponentCalendar)
		}
	}
}

// NewService creates a calendar service reading month data from reader.
func NewService(store *cache.Store, reader tradedata.MonthReader, opts ...Option) *Service {
	s := &Service{
		store:   store,
		dates:   dates.New(store),
		reader:  reader,
		latency: DefaultLatency,
		now:     time.Now,
		logger:  log.Discard().WithComponent(log.ComponentCalendar),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dates returns the date calculator sharing the service's store.
func (s *Service) Dates() *dates.Calc {
	return s.dates
}

// FetchCalendarData returns the stored data for a zero-based month, or nil
// when the month has none. The read happens after the simulated latency,
// once per month: concurrent callers share the same in-flight read and later
// callers get the cached result until the calendar caches are cleared. A
// failed read is not cached.
func (s *Service) FetchCalendarData(ctx context.Context, year, month0 int) (*core.CalendarData, error) {
	key := core.CacheKey(year, month0)
	data, err := cache.LoadAsync(ctx, s.store, cache.CalendarData, key,
		func(ctx context.Context) (*core.CalendarData, error) {
			return s.fetch(ctx, year, month0)
		})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	out := data.Clone()
	return &out, nil
}

func (s *Service) fetch(ctx context.Context, year, month0 int) (*core.CalendarData, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	monthKey := core.MonthKey(year, month0)
	entry, err := s.reader.ReadMonth(ctx, monthKey)
	if err != nil {
		s.logger.Error("Failed to read month", log.FieldMonthKey, monthKey, log.FieldError, err)
		return nil, fmt.Errorf("read month %s: %w", monthKey, err)
	}
	if entry == nil {
		s.logger.Debug("No data for month", log.FieldMonthKey, monthKey)
		return nil, nil
	}

	days := make([]core.Day, 0, len(entry.Days))
	for _, d := range entry.Days {
		dom, err := s.dates.DayOfMonth(d.Date)
		if err != nil {
			return nil, fmt.Errorf("month %s: %w", monthKey, err)
		}
		dow, err := s.dates.DayOfWeek(d.Date)
		if err != nil {
			return nil, fmt.Errorf("month %s: %w", monthKey, err)
		}
		days = append(days, core.Day{
			Date:       d.Date,
			DayOfMonth: dom,
			DayOfWeek:  dow,
			PnL:        d.PnL,
			TradeCount: d.TradeCount,
			HasNotes:   d.HasNotes,
		})
	}

	name := entry.Month
	if name == "" {
		name = s.dates.MonthName(month0)
	}
	y := entry.Year
	if y == 0 {
		y = year
	}

	// Monthly and weekly totals stay zero; aggregation is left to callers.
	return &core.CalendarData{
		Month:      name,
		Year:       y,
		MonthlyPnL: 0,
		Days:       days,
		Weeks:      []core.WeekSummary{},
	}, nil
}

// ClearCalendarCaches drops every cached grid and month read. Date and
// formatting caches are kept.
func (s *Service) ClearCalendarCaches() {
	s.store.ResetCache(cache.CalendarData, cache.EmptyCalendar)
	s.logger.Info("Calendar caches cleared")
}

// InvalidateYear drops the cached grids and month reads of one year and
// returns the number of entries removed.
func (s *Service) InvalidateYear(year int) int {
	removed := s.store.ResetCacheForEntity(fmt.Sprintf("%d-", year), cache.CalendarData, cache.EmptyCalendar)
	s.logger.Info("Calendar year invalidated", log.FieldYear, year, "removed", removed)
	return removed
}

// ApplyRefresh drops the cached month reads for the given "YYYY-MM" keys.
// With no keys, or any key that does not parse, it clears all calendar caches.
func (s *Service) ApplyRefresh(monthKeys []string) {
	if len(monthKeys) == 0 {
		s.ClearCalendarCaches()
		return
	}

	reads := cache.For[*core.CalendarData](s.store, cache.CalendarData)
	keys := make([]string, 0, len(monthKeys))
	for _, mk := range monthKeys {
		year, month0, err := core.ParseMonthKey(mk)
		if err != nil {
			s.logger.Warn("Invalid month key in refresh, clearing all", log.FieldMonthKey, mk, log.FieldError, err)
			s.ClearCalendarCaches()
			return
		}
		keys = append(keys, core.CacheKey(year, month0))
	}
	for _, k := range keys {
		reads.Delete(k)
	}
	s.logger.Info("Calendar months refreshed", "months", len(keys))
}

// LatestDataMonth returns the most recent month holding data, or the
// current month when the reader has none.
func (s *Service) LatestDataMonth(ctx context.Context) (YearMonth, error) {
	keys, err := s.reader.MonthKeys(ctx)
	if err != nil {
		return YearMonth{}, fmt.Errorf("list months: %w", err)
	}
	if len(keys) == 0 {
		now := s.now()
		return YearMonth{Year: s.dates.Year(now), Month: s.dates.MonthIndex(now)}, nil
	}

	sorted := append([]string(nil), keys...)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))
	year, month0, err := core.ParseMonthKey(sorted[0])
	if err != nil {
		return YearMonth{}, err
	}
	return YearMonth{Year: year, Month: month0}, nil
}

// MonthView returns the month grid with the month's data overlaid, and
// whether any data was found.
func (s *Service) MonthView(ctx context.Context, year, month0 int) (core.CalendarData, bool, error) {
	grid := s.GenerateEmptyCalendar(year, month0)
	data, err := s.FetchCalendarData(ctx, year, month0)
	if err != nil {
		return core.CalendarData{}, false, err
	}
	return Overlay(grid, data), data != nil, nil
}

// Prefetch warms the grid and data caches for several months concurrently.
func (s *Service) Prefetch(ctx context.Context, months []YearMonth) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, ym := range months {
		g.Go(func() error {
			s.GenerateEmptyCalendar(ym.Year, ym.Month)
			if _, err := s.FetchCalendarData(ctx, ym.Year, ym.Month); err != nil {
				return fmt.Errorf("prefetch %s: %w", ym, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Debug("Prefetched months", "months", len(months))
	return nil
}

// RecentMonths returns n months ending at latest, oldest first.
func RecentMonths(latest YearMonth, n int) []YearMonth {
	out := make([]YearMonth, 0, max(n, 0))
	for i := n - 1; i >= 0; i-- {
		t := dates.AddMonths(dates.FirstOfMonth(latest.Year, latest.Month), -i)
		out = append(out, YearMonth{Year: t.Year(), Month: int(t.Month()) - 1})
	}
	return out
}
