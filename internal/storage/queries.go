package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Month struct {
	MonthKey  string
	Year      int64
	MonthName string
	UpdatedAt string
}

type TradingDay struct {
	MonthKey   string
	Date       string
	PnlCents   int64
	TradeCount int64
	HasNotes   bool
}

const upsertMonth = `
INSERT INTO months (month_key, year, month_name, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(month_key) DO UPDATE SET
    year = excluded.year,
    month_name = excluded.month_name,
    updated_at = CURRENT_TIMESTAMP`

type UpsertMonthParams struct {
	MonthKey  string
	Year      int64
	MonthName string
}

func (q *Queries) UpsertMonth(ctx context.Context, arg UpsertMonthParams) error {
	_, err := q.db.ExecContext(ctx, upsertMonth, arg.MonthKey, arg.Year, arg.MonthName)
	return err
}

const getMonth = `
SELECT month_key, year, month_name, updated_at
FROM months
WHERE month_key = ?`

func (q *Queries) GetMonth(ctx context.Context, monthKey string) (Month, error) {
	row := q.db.QueryRowContext(ctx, getMonth, monthKey)
	var i Month
	err := row.Scan(&i.MonthKey, &i.Year, &i.MonthName, &i.UpdatedAt)
	return i, err
}

const listMonthKeys = `
SELECT month_key
FROM months
ORDER BY month_key`

func (q *Queries) ListMonthKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listMonthKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		items = append(items, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteDaysForMonth = `
DELETE FROM trading_days
WHERE month_key = ?`

func (q *Queries) DeleteDaysForMonth(ctx context.Context, monthKey string) error {
	_, err := q.db.ExecContext(ctx, deleteDaysForMonth, monthKey)
	return err
}

const insertDay = `
INSERT INTO trading_days (month_key, date, pnl_cents, trade_count, has_notes)
VALUES (?, ?, ?, ?, ?)`

type InsertDayParams struct {
	MonthKey   string
	Date       string
	PnlCents   int64
	TradeCount int64
	HasNotes   bool
}

func (q *Queries) InsertDay(ctx context.Context, arg InsertDayParams) error {
	_, err := q.db.ExecContext(ctx, insertDay, arg.MonthKey, arg.Date, arg.PnlCents, arg.TradeCount, arg.HasNotes)
	return err
}

const listDaysForMonth = `
SELECT month_key, date, pnl_cents, trade_count, has_notes
FROM trading_days
WHERE month_key = ?
ORDER BY date`

func (q *Queries) ListDaysForMonth(ctx context.Context, monthKey string) ([]TradingDay, error) {
	rows, err := q.db.QueryContext(ctx, listDaysForMonth, monthKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TradingDay
	for rows.Next() {
		var i TradingDay
		if err := rows.Scan(&i.MonthKey, &i.Date, &i.PnlCents, &i.TradeCount, &i.HasNotes); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteMonth = `
DELETE FROM months
WHERE month_key = ?`

func (q *Queries) DeleteMonth(ctx context.Context, monthKey string) error {
	_, err := q.db.ExecContext(ctx, deleteMonth, monthKey)
	return err
}
