package storage

import (
	"context"
	"time"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

// PriceSource supplies ordered daily bars for one ticker.
// All methods return bars in ascending date order.
type PriceSource interface {
	// AllBars returns the full available history for a ticker
	AllBars(ctx context.Context, ticker string) ([]*models.Bar, error)

	// BarsFrom returns all bars with date >= from
	BarsFrom(ctx context.Context, ticker string, from time.Time) ([]*models.Bar, error)

	// BarsBefore returns up to limit bars with date < before, i.e. the
	// warmup window immediately preceding an incremental run
	BarsBefore(ctx context.Context, ticker string, before time.Time, limit int) ([]*models.Bar, error)

	// Close closes the source
	Close() error
}

// IndicatorSink receives computed indicator rows for persistence.
type IndicatorSink interface {
	// UpsertRows writes rows keyed by (ticker, date); existing rows are
	// overwritten. The write is atomic per call: either every row lands
	// or none do.
	UpsertRows(ctx context.Context, rows []*models.IndicatorRow) error

	// LatestDate returns the most recent date with indicator data for a
	// ticker; ok is false when the ticker has no rows yet
	LatestDate(ctx context.Context, ticker string) (latest time.Time, ok bool, err error)

	// Close closes the sink
	Close() error
}
