package worker

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tradecal/internal/core"
	"tradecal/internal/log"
	"tradecal/internal/tradedata"
)

// Publisher announces months whose stored data changed.
type Publisher interface {
	PublishRefresh(ctx context.Context, source string, monthKeys []string) error
}

// ImportWorker copies months from a source into a destination store and
// publishes a refresh event listing the months it changed.
type ImportWorker struct {
	source      tradedata.MonthReader
	dest        tradedata.MonthStore
	publisher   Publisher
	sourceName  string
	concurrency int
	logger      *log.Logger
}

// Result summarizes one import pass
type Result struct {
	Changed   []string
	Unchanged int
}

func NewImportWorker(source tradedata.MonthReader, dest tradedata.MonthStore, publisher Publisher, sourceName string, logger *log.Logger) *ImportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ImportWorker{
		source:      source,
		dest:        dest,
		publisher:   publisher,
		sourceName:  sourceName,
		concurrency: 4,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// RunOnce imports every source month. Months equal to what the destination
// already stores are skipped. A refresh event is published only when at
// least one month changed.
func (w *ImportWorker) RunOnce(ctx context.Context) (Result, error) {
	keys, err := w.source.MonthKeys(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list source months: %w", err)
	}

	var (
		mu     sync.Mutex
		result Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, key := range keys {
		g.Go(func() error {
			changed, err := w.importMonth(gctx, key)
			if err != nil {
				return fmt.Errorf("import %s: %w", key, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if changed {
				result.Changed = append(result.Changed, key)
			} else {
				result.Unchanged++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	sort.Strings(result.Changed)

	w.logger.InfoContext(ctx, "Import pass completed",
		log.FieldOperation, log.OpImport,
		log.FieldSource, w.sourceName,
		"changed", len(result.Changed),
		"unchanged", result.Unchanged)

	if len(result.Changed) == 0 || w.publisher == nil {
		return result, nil
	}
	if err := w.publisher.PublishRefresh(ctx, w.sourceName, result.Changed); err != nil {
		return result, fmt.Errorf("publish refresh: %w", err)
	}
	return result, nil
}

func (w *ImportWorker) importMonth(ctx context.Context, key string) (bool, error) {
	entry, err := w.source.ReadMonth(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read source: %w", err)
	}
	if entry == nil {
		return false, nil
	}

	current, err := w.dest.ReadMonth(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read destination: %w", err)
	}
	if current != nil && sameMonth(*current, *entry) {
		return false, nil
	}

	if err := w.dest.ReplaceMonth(ctx, key, *entry); err != nil {
		return false, fmt.Errorf("write destination: %w", err)
	}
	w.logger.DebugContext(ctx, "Month imported", log.FieldMonthKey, key, log.FieldDays, len(entry.Days))
	return true, nil
}

// sameMonth compares entries treating nil and empty day lists as equal.
func sameMonth(a, b core.MonthEntry) bool {
	if a.Month != b.Month || a.Year != b.Year || len(a.Days) != len(b.Days) {
		return false
	}
	if len(a.Days) == 0 {
		return true
	}
	return reflect.DeepEqual(a.Days, b.Days)
}

// Run performs an import immediately and then every interval until ctx is
// cancelled. Failed passes are logged and retried on the next tick.
func (w *ImportWorker) Run(ctx context.Context, interval time.Duration) {
	w.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Import worker stopped")
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *ImportWorker) runLogged(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Import pass failed",
			log.FieldOperation, log.OpImport,
			log.FieldError, err)
	}
}
