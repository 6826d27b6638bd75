package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradesetup/indicator-pipeline/internal/models"
	"github.com/tradesetup/indicator-pipeline/internal/storage"
)

type failingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (f *failingPublisher) PublishRows(ctx context.Context, rows []*models.IndicatorRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("stream unavailable")
}

// countingSource wraps a PriceSource and tracks peak concurrent reads
type countingSource struct {
	storage.PriceSource
	active int64
	peak   int64
}

func (c *countingSource) AllBars(ctx context.Context, ticker string) ([]*models.Bar, error) {
	n := atomic.AddInt64(&c.active, 1)
	for {
		peak := atomic.LoadInt64(&c.peak)
		if n <= peak || atomic.CompareAndSwapInt64(&c.peak, peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	defer atomic.AddInt64(&c.active, -1)
	return c.PriceSource.AllBars(ctx, ticker)
}

func TestBatchRunner_TickersAreIsolated(t *testing.T) {
	source := storage.NewMockPriceSource()
	source.SetBars("AAPL", walkBars("AAPL", 40))
	source.SetBars("MSFT", walkBars("MSFT", 40))
	// GHOST has no bars at all

	sink := storage.NewMockIndicatorSink()
	runner := NewBatchRunner(newTestEngine(source), sink, 2)

	outcomes := runner.Run(context.Background(), []string{"AAPL", "GHOST", "MSFT"}, nil)
	require.Len(t, outcomes, 3)

	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 40, outcomes[0].RowCount)

	assert.True(t, errors.Is(outcomes[1].Err, models.ErrNoBars))
	assert.Equal(t, 0, outcomes[1].RowCount)

	assert.NoError(t, outcomes[2].Err)
	assert.Equal(t, 40, outcomes[2].RowCount)

	assert.Equal(t, 40, sink.RowCount("AAPL"))
	assert.Equal(t, 40, sink.RowCount("MSFT"))
	assert.Equal(t, 0, sink.RowCount("GHOST"))
}

func TestBatchRunner_FailedSinkMeansNothingPersisted(t *testing.T) {
	source := storage.NewMockPriceSource()
	source.SetBars("AAPL", walkBars("AAPL", 40))
	source.SetBars("TSLA", walkBars("TSLA", 40))

	sink := storage.NewMockIndicatorSink()
	sink.FailTicker = "TSLA"

	runner := NewBatchRunner(newTestEngine(source), sink, 2)
	outcomes := runner.Run(context.Background(), []string{"AAPL", "TSLA"}, nil)

	assert.NoError(t, outcomes[0].Err)
	require.Error(t, outcomes[1].Err)
	assert.Equal(t, 0, outcomes[1].RowCount)
	assert.Equal(t, 0, sink.RowCount("TSLA"))
	assert.Equal(t, 40, sink.RowCount("AAPL"))
}

func TestBatchRunner_CancelledContext(t *testing.T) {
	source := storage.NewMockPriceSource()
	source.SetBars("AAPL", walkBars("AAPL", 40))

	sink := storage.NewMockIndicatorSink()
	runner := NewBatchRunner(newTestEngine(source), sink, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := runner.Run(ctx, []string{"AAPL", "MSFT", "TSLA"}, nil)
	require.Len(t, outcomes, 3)
	for _, outcome := range outcomes {
		assert.True(t, errors.Is(outcome.Err, context.Canceled),
			"ticker %s: expected cancellation, got %v", outcome.Ticker, outcome.Err)
	}
}

func TestBatchRunner_PublishFailureIsSoft(t *testing.T) {
	source := storage.NewMockPriceSource()
	source.SetBars("AAPL", walkBars("AAPL", 40))

	sink := storage.NewMockIndicatorSink()
	runner := NewBatchRunner(newTestEngine(source), sink, 1)

	pub := &failingPublisher{}
	runner.SetPublisher(pub)

	outcomes := runner.Run(context.Background(), []string{"AAPL"}, nil)

	// Rows persist even when downstream publishing fails
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 40, outcomes[0].RowCount)
	assert.Equal(t, 40, sink.RowCount("AAPL"))
	assert.Equal(t, 1, pub.calls)
}

func TestBatchRunner_RespectsWorkerBound(t *testing.T) {
	mock := storage.NewMockPriceSource()
	tickers := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for _, ticker := range tickers {
		mock.SetBars(ticker, walkBars(ticker, 30))
	}

	source := &countingSource{PriceSource: mock}
	sink := storage.NewMockIndicatorSink()
	runner := NewBatchRunner(newTestEngine(source), sink, 2)

	outcomes := runner.Run(context.Background(), tickers, nil)
	for _, outcome := range outcomes {
		assert.NoError(t, outcome.Err)
	}

	assert.LessOrEqual(t, atomic.LoadInt64(&source.peak), int64(2))
}

func TestBatchRunner_FixedFromResolver(t *testing.T) {
	source := storage.NewMockPriceSource()
	bars := walkBars("AAPL", 50)
	source.SetBars("AAPL", bars)

	sink := storage.NewMockIndicatorSink()
	runner := NewBatchRunner(newTestEngine(source), sink, 1)

	outcomes := runner.Run(context.Background(), []string{"AAPL"}, FixedFrom(bars[40].Date))
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 10, outcomes[0].RowCount)
	assert.True(t, outcomes[0].ReducedAccuracy)
	assert.Equal(t, 10, sink.RowCount("AAPL"))
}
