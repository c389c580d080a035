package tradedata

import (
	"context"

	"tradecal/internal/core"
)

// Ports for trade data sources.
type (
	// MonthReader provides stored months keyed by "YYYY-MM".
	MonthReader interface {
		// ReadMonth returns the entry for key, or nil when the month has no data.
		ReadMonth(ctx context.Context, key string) (*core.MonthEntry, error)

		// MonthKeys returns every stored key in ascending order.
		MonthKeys(ctx context.Context) ([]string, error)
	}

	// MonthWriter replaces the stored entry for one month.
	MonthWriter interface {
		ReplaceMonth(ctx context.Context, key string, entry core.MonthEntry) error
	}

	MonthStore interface {
		MonthReader
		MonthWriter
	}
)
