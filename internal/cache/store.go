package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"tradecal/internal/log"
)

// Store is a category-partitioned memoization table. Values are never
// evicted; entries disappear only through ResetCache or ResetCacheForEntity.
type Store struct {
	mu     sync.Mutex
	tables map[Category]map[string]any
	logger *log.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Store
type Option func(*Store)

// WithLogger makes the store log computations at debug level.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.WithComponent(log.ComponentCache)
		}
	}
}

// New creates an empty store with one table per category.
func New(opts ...Option) *Store {
	s := &Store{tables: emptyTables()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func emptyTables() map[Category]map[string]any {
	tables := make(map[Category]map[string]any, numCategories)
	for _, c := range Categories() {
		tables[c] = make(map[string]any)
	}
	return tables
}

// Stats maps every category to its current number of entries.
type Stats map[Category]int

// Total returns the sum of entries over all categories.
func (st Stats) Total() int {
	n := 0
	for _, v := range st {
		n += v
	}
	return n
}

// Counters reports lookups served from the store versus computed.
type Counters struct {
	Hits   int64
	Misses int64
}

// Load returns the value cached under (category, key), computing and storing
// it on a miss. Any stored value short-circuits compute, including zero values.
// When two callers race on a miss the first stored value wins and is returned
// to both.
func Load[T any](s *Store, category Category, key string, compute func() T) T {
	if v, ok := lookup[T](s, category, key); ok {
		return v
	}
	s.debug("Computing cache entry", category, key)
	return storeIfAbsent(s, category, key, compute())
}

// LoadE is Load for computations that can fail. A failed computation leaves
// no entry behind, so the next call computes again.
func LoadE[T any](s *Store, category Category, key string, compute func() (T, error)) (T, error) {
	if v, ok := lookup[T](s, category, key); ok {
		return v, nil
	}
	s.debug("Computing cache entry", category, key)
	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	return storeIfAbsent(s, category, key, v), nil
}

// future is the in-flight computation stored for asynchronous categories.
type future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// LoadAsync caches the computation itself rather than its result: the first
// caller stores a pending future under the key and starts compute, and every
// caller arriving before or after resolution waits on that same future. A
// computation that fails is dropped from the table so a later call retries.
//
// Cancelling ctx releases the waiting caller only; compute keeps running with
// a context detached from the caller's cancellation.
func LoadAsync[T any](ctx context.Context, s *Store, category Category, key string, compute func(context.Context) (T, error)) (T, error) {
	s.mu.Lock()
	table := s.table(category)
	f, ok := table[key].(*future[T])
	if ok {
		s.mu.Unlock()
		s.hits.Add(1)
	} else {
		f = &future[T]{done: make(chan struct{})}
		table[key] = f
		s.mu.Unlock()
		s.misses.Add(1)
		s.debug("Starting cache computation", category, key)
		go resolve(context.WithoutCancel(ctx), s, category, key, f, compute)
	}

	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func resolve[T any](ctx context.Context, s *Store, category Category, key string, f *future[T], compute func(context.Context) (T, error)) {
	defer close(f.done)
	defer func() {
		if r := recover(); r != nil {
			f.err = fmt.Errorf("cache computation %s/%s panicked: %v", category, key, r)
			s.forget(category, key, f)
		}
	}()

	f.val, f.err = compute(ctx)
	if f.err != nil {
		s.forget(category, key, f)
	}
}

// forget removes the entry only if it still holds f; a reset may already
// have replaced or removed it.
func (s *Store) forget(category Category, key string, f any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.table(category)
	if cur, ok := table[key]; ok && cur == f {
		delete(table, key)
	}
}

func lookup[T any](s *Store, category Category, key string) (T, bool) {
	s.mu.Lock()
	raw, exists := s.table(category)[key]
	s.mu.Unlock()

	var zero T
	if !exists {
		s.misses.Add(1)
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		// Same key used with a different value type; recompute and replace.
		if s.logger != nil {
			s.logger.Warn("Cache entry type mismatch",
				"category", category.String(),
				"key", key,
				"stored_type", fmt.Sprintf("%T", raw))
		}
		s.mu.Lock()
		delete(s.table(category), key)
		s.mu.Unlock()
		s.misses.Add(1)
		return zero, false
	}
	s.hits.Add(1)
	return v, true
}

func storeIfAbsent[T any](s *Store, category Category, key string, v T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.table(category)
	if raw, ok := table[key]; ok {
		if existing, ok := raw.(T); ok {
			return existing
		}
	}
	table[key] = v
	return v
}

// table must be called with s.mu held.
func (s *Store) table(category Category) map[string]any {
	t, ok := s.tables[category]
	if !ok {
		t = make(map[string]any)
		s.tables[category] = t
	}
	return t
}

// ResetCache clears the given categories. Without arguments it clears every
// category, restoring the store to its initial state.
func (s *Store) ResetCache(categories ...Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(categories) == 0 {
		s.tables = emptyTables()
		return
	}
	for _, c := range categories {
		s.tables[c] = make(map[string]any)
	}
}

// ResetCacheForEntity removes every entry whose key starts with prefix in the
// given categories (all categories when none are given). The match is a plain
// string prefix test. It returns the number of entries removed.
func (s *Store) ResetCacheForEntity(prefix string, categories ...Category) int {
	if len(categories) == 0 {
		categories = Categories()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, c := range categories {
		table, ok := s.tables[c]
		if !ok {
			continue
		}
		for key := range table {
			if strings.HasPrefix(key, prefix) {
				delete(table, key)
				removed++
			}
		}
	}
	return removed
}

// CacheStats returns the number of entries per category. Pending
// asynchronous computations count as entries.
func (s *Store) CacheStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(Stats, numCategories)
	for _, c := range Categories() {
		stats[c] = len(s.tables[c])
	}
	return stats
}

// Counters returns the hit and miss totals since the store was created.
func (s *Store) Counters() Counters {
	return Counters{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

func (s *Store) debug(msg string, category Category, key string) {
	if s.logger == nil {
		return
	}
	s.logger.Debug(msg, "category", category.String(), "key", key)
}
