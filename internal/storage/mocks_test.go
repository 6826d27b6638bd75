package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

func barAt(ticker string, date time.Time) *models.Bar {
	return &models.Bar{
		Ticker: ticker,
		Date:   date,
		Open:   100,
		High:   101,
		Low:    99,
		Close:  100,
		Volume: 1000,
	}
}

func TestMockPriceSource_BarsBefore(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	source := NewMockPriceSource()

	bars := make([]*models.Bar, 10)
	for i := range bars {
		bars[i] = barAt("AAPL", base.AddDate(0, 0, i))
	}
	source.SetBars("AAPL", bars)

	got, err := source.BarsBefore(context.Background(), "AAPL", base.AddDate(0, 0, 7), 3)
	require.NoError(t, err)

	// The 3 bars immediately preceding the cutoff, ascending
	require.Len(t, got, 3)
	assert.Equal(t, base.AddDate(0, 0, 4), got[0].Date)
	assert.Equal(t, base.AddDate(0, 0, 6), got[2].Date)
}

func TestMockIndicatorSink_UpsertOverwrites(t *testing.T) {
	sink := NewMockIndicatorSink()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	v1 := 1.0
	v2 := 2.0
	require.NoError(t, sink.UpsertRows(context.Background(), []*models.IndicatorRow{
		{Ticker: "AAPL", Date: date, OBV: &v1},
	}))
	require.NoError(t, sink.UpsertRows(context.Background(), []*models.IndicatorRow{
		{Ticker: "AAPL", Date: date, OBV: &v2},
	}))

	// Same (ticker, date) replaces, never duplicates
	assert.Equal(t, 1, sink.RowCount("AAPL"))
	assert.Equal(t, 2.0, *sink.Rows["AAPL"][0].OBV)
}

func TestMockIndicatorSink_LatestDate(t *testing.T) {
	sink := NewMockIndicatorSink()

	_, ok, err := sink.LatestDate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	d1 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sink.UpsertRows(context.Background(), []*models.IndicatorRow{
		{Ticker: "AAPL", Date: d2},
		{Ticker: "AAPL", Date: d1},
	}))

	latest, ok, err := sink.LatestDate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, latest.Equal(d2))
}
