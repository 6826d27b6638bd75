package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tradesetup/indicator-pipeline/internal/models"
	"github.com/tradesetup/indicator-pipeline/internal/storage"
	"github.com/tradesetup/indicator-pipeline/pkg/logger"
)

// FromResolver decides the incremental start date for one ticker.
// Returning a nil time requests a full recompute for that ticker.
type FromResolver func(ctx context.Context, ticker string) (*time.Time, error)

// FullRecompute is a FromResolver that always requests full history
func FullRecompute(ctx context.Context, ticker string) (*time.Time, error) {
	return nil, nil
}

// FixedFrom builds a FromResolver that uses the same start date for every ticker
func FixedFrom(from time.Time) FromResolver {
	return func(ctx context.Context, ticker string) (*time.Time, error) {
		f := from
		return &f, nil
	}
}

// RowPublisher pushes freshly computed rows to downstream consumers.
// Publishing is best effort; a publish failure never fails the ticker.
type RowPublisher interface {
	PublishRows(ctx context.Context, rows []*models.IndicatorRow) error
}

// TickerOutcome is the per-ticker result of a batch run
type TickerOutcome struct {
	Ticker          string
	RowCount        int
	ReducedAccuracy bool
	Err             error
}

// BatchRunner fans a set of tickers out over a bounded worker pool.
// Tickers are fully independent: one ticker's failure is recorded in its
// outcome and the rest of the batch keeps going.
type BatchRunner struct {
	engine    *Engine
	sink      storage.IndicatorSink
	publisher RowPublisher
	workers   int
}

// NewBatchRunner creates a batch runner with the given worker bound
func NewBatchRunner(eng *Engine, sink storage.IndicatorSink, workers int) *BatchRunner {
	if workers < 1 {
		workers = 1
	}
	return &BatchRunner{
		engine:  eng,
		sink:    sink,
		workers: workers,
	}
}

// SetPublisher attaches an optional downstream publisher
func (b *BatchRunner) SetPublisher(p RowPublisher) {
	b.publisher = p
}

// Run recomputes every ticker and persists the results. The returned slice
// is index-aligned with tickers; cancelled or unstarted tickers carry the
// context error as their outcome.
func (b *BatchRunner) Run(ctx context.Context, tickers []string, resolve FromResolver) []TickerOutcome {
	if resolve == nil {
		resolve = FullRecompute
	}

	outcomes := make([]TickerOutcome, len(tickers))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = b.runOne(ctx, tickers[idx], resolve)
			}
		}()
	}

feed:
	for i := range tickers {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(tickers); j++ {
				outcomes[j] = TickerOutcome{Ticker: tickers[j], Err: ctx.Err()}
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (b *BatchRunner) runOne(ctx context.Context, ticker string, resolve FromResolver) TickerOutcome {
	outcome := TickerOutcome{Ticker: ticker}

	from, err := resolve(ctx, ticker)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to resolve start date: %w", err)
		return outcome
	}

	result, err := b.engine.Recompute(ctx, ticker, from)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.ReducedAccuracy = result.ReducedAccuracy

	if err := b.sink.UpsertRows(ctx, result.Rows); err != nil {
		outcome.Err = fmt.Errorf("failed to persist rows: %w", err)
		return outcome
	}
	outcome.RowCount = len(result.Rows)

	if b.publisher != nil && len(result.Rows) > 0 {
		if err := b.publisher.PublishRows(ctx, result.Rows); err != nil {
			logger.Warn("Failed to publish indicator rows",
				logger.String("ticker", ticker),
				logger.Int("rows", len(result.Rows)),
				logger.ErrorField(err),
			)
		}
	}

	return outcome
}
