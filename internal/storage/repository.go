package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tradecal/internal/core"
	"tradecal/internal/tradedata"

	_ "modernc.org/sqlite"
)

var _ tradedata.MonthStore = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db            *sql.DB
	queries       *Queries
	schemaVersion uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:            db,
		queries:       New(db),
		schemaVersion: version,
	}, nil
}

// SchemaVersion is the migration version the database was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReadMonth implements tradedata.MonthReader
func (r *SQLiteRepository) ReadMonth(ctx context.Context, key string) (*core.MonthEntry, error) {
	m, err := r.queries.GetMonth(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get month %s: %w", key, err)
	}

	rows, err := r.queries.ListDaysForMonth(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list days for %s: %w", key, err)
	}

	entry := &core.MonthEntry{
		Month: m.MonthName,
		Year:  int(m.Year),
		Days:  make([]core.DayEntry, 0, len(rows)),
	}
	for _, d := range rows {
		entry.Days = append(entry.Days, core.DayEntry{
			Date:       d.Date,
			PnL:        float64(d.PnlCents) / 100,
			TradeCount: int(d.TradeCount),
			HasNotes:   d.HasNotes,
		})
	}
	return entry, nil
}

// MonthKeys implements tradedata.MonthReader
func (r *SQLiteRepository) MonthKeys(ctx context.Context) ([]string, error) {
	keys, err := r.queries.ListMonthKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list month keys: %w", err)
	}
	return keys, nil
}

// ReplaceMonth implements tradedata.MonthWriter. The month row and all of its
// days are rewritten in one transaction.
func (r *SQLiteRepository) ReplaceMonth(ctx context.Context, key string, entry core.MonthEntry) error {
	if _, _, err := core.ParseMonthKey(key); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpsertMonth(ctx, UpsertMonthParams{
		MonthKey:  key,
		Year:      int64(entry.Year),
		MonthName: entry.Month,
	}); err != nil {
		return fmt.Errorf("upsert month %s: %w", key, err)
	}
	if err := q.DeleteDaysForMonth(ctx, key); err != nil {
		return fmt.Errorf("delete days for %s: %w", key, err)
	}
	for _, d := range entry.Days {
		if err := q.InsertDay(ctx, InsertDayParams{
			MonthKey:   key,
			Date:       d.Date,
			PnlCents:   core.Cents(d.PnL),
			TradeCount: int64(d.TradeCount),
			HasNotes:   d.HasNotes,
		}); err != nil {
			return fmt.Errorf("insert day %s: %w", d.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit month %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Month saved to SQLite", "month_key", key, "days", len(entry.Days))
	return nil
}

// DeleteMonth removes a month and its days
func (r *SQLiteRepository) DeleteMonth(ctx context.Context, key string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteDaysForMonth(ctx, key); err != nil {
		return fmt.Errorf("delete days for %s: %w", key, err)
	}
	if err := q.DeleteMonth(ctx, key); err != nil {
		return fmt.Errorf("delete month %s: %w", key, err)
	}
	return tx.Commit()
}
