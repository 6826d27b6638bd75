package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

// MockPriceSource is a mock implementation of PriceSource for testing
type MockPriceSource struct {
	mu   sync.Mutex
	Bars map[string][]*models.Bar
	Err  error
}

// NewMockPriceSource creates a new mock price source
func NewMockPriceSource() *MockPriceSource {
	return &MockPriceSource{
		Bars: make(map[string][]*models.Bar),
	}
}

// SetBars installs the full history for a ticker, sorted by date
func (m *MockPriceSource) SetBars(ticker string, bars []*models.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sorted := make([]*models.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	m.Bars[ticker] = sorted
}

func (m *MockPriceSource) AllBars(ctx context.Context, ticker string) ([]*models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Bars[ticker], nil
}

func (m *MockPriceSource) BarsFrom(ctx context.Context, ticker string, from time.Time) ([]*models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	var out []*models.Bar
	for _, bar := range m.Bars[ticker] {
		if !bar.Date.Before(from) {
			out = append(out, bar)
		}
	}
	return out, nil
}

func (m *MockPriceSource) BarsBefore(ctx context.Context, ticker string, before time.Time, limit int) ([]*models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	var out []*models.Bar
	for _, bar := range m.Bars[ticker] {
		if bar.Date.Before(before) {
			out = append(out, bar)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MockPriceSource) Close() error {
	return nil
}

// MockIndicatorSink is a mock implementation of IndicatorSink for testing
type MockIndicatorSink struct {
	mu         sync.Mutex
	Rows       map[string][]*models.IndicatorRow
	Latest     map[string]time.Time
	UpsertErr  error
	FailTicker string // UpsertRows fails for this ticker only
}

// NewMockIndicatorSink creates a new mock indicator sink
func NewMockIndicatorSink() *MockIndicatorSink {
	return &MockIndicatorSink{
		Rows:   make(map[string][]*models.IndicatorRow),
		Latest: make(map[string]time.Time),
	}
}

func (m *MockIndicatorSink) UpsertRows(ctx context.Context, rows []*models.IndicatorRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if len(rows) == 0 {
		return nil
	}
	if m.FailTicker != "" && rows[0].Ticker == m.FailTicker {
		return context.DeadlineExceeded
	}

	for _, row := range rows {
		existing := m.Rows[row.Ticker]
		replaced := false
		for i, prev := range existing {
			if prev.Date.Equal(row.Date) {
				existing[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, row)
		}
		m.Rows[row.Ticker] = existing

		if row.Date.After(m.Latest[row.Ticker]) {
			m.Latest[row.Ticker] = row.Date
		}
	}
	return nil
}

func (m *MockIndicatorSink) LatestDate(ctx context.Context, ticker string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest, ok := m.Latest[ticker]
	return latest, ok, nil
}

// RowCount returns how many rows were persisted for a ticker
func (m *MockIndicatorSink) RowCount(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Rows[ticker])
}

func (m *MockIndicatorSink) Close() error {
	return nil
}
