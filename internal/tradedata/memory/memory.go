package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"tradecal/data"
	"tradecal/internal/core"
)

// Store holds months in memory, keyed by "YYYY-MM". It is loaded from a JSON
// object mapping month keys to month entries.
type Store struct {
	mu     sync.RWMutex
	path   string
	months map[string]core.MonthEntry
}

func New(months map[string]core.MonthEntry) *Store {
	s := &Store{months: make(map[string]core.MonthEntry, len(months))}
	for k, v := range months {
		s.months[k] = v
	}
	return s
}

// NewDefault loads the embedded mock data set.
func NewDefault() (*Store, error) {
	months, err := decode(data.MockTradingDataStore)
	if err != nil {
		return nil, fmt.Errorf("decode embedded data: %w", err)
	}
	return &Store{months: months}, nil
}

// NewFromFile loads months from a JSON file. An empty path falls back to the
// embedded data set.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return NewDefault()
	}
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file. Stores without a file keep their data.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	months, err := decode(raw)
	if err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.months = months
	s.mu.Unlock()
	return nil
}

func decode(raw []byte) (map[string]core.MonthEntry, error) {
	months := map[string]core.MonthEntry{}
	if err := json.Unmarshal(raw, &months); err != nil {
		return nil, err
	}
	for key := range months {
		if _, _, err := core.ParseMonthKey(key); err != nil {
			return nil, err
		}
	}
	return months, nil
}

// ReadMonth returns a copy of the stored entry, or nil if key is absent.
func (s *Store) ReadMonth(_ context.Context, key string) (*core.MonthEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.months[key]
	if !ok {
		return nil, nil
	}
	e.Days = append([]core.DayEntry(nil), e.Days...)
	return &e, nil
}

// MonthKeys returns the stored keys sorted ascending.
func (s *Store) MonthKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.months))
	for k := range s.months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// ReplaceMonth stores entry under key in memory only.
func (s *Store) ReplaceMonth(_ context.Context, key string, entry core.MonthEntry) error {
	if _, _, err := core.ParseMonthKey(key); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Days = append([]core.DayEntry(nil), entry.Days...)
	s.months[key] = entry
	return nil
}
