package pubsub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestBuildMessages(t *testing.T) {
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	rows := []*models.IndicatorRow{
		{
			Ticker: "AAPL",
			Date:   date,
			EMA10:  floatPtr(187.42),
			RSI:    floatPtr(61.3),
			OBV:    floatPtr(1.25e9),
		},
	}

	messages, err := buildMessages(rows)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	msg := messages[0]
	assert.Equal(t, "AAPL", msg["ticker"])
	assert.Equal(t, "2025-06-02", msg["date"])

	var decoded models.IndicatorRow
	require.NoError(t, json.Unmarshal([]byte(msg["row"].(string)), &decoded))
	assert.Equal(t, "AAPL", decoded.Ticker)
	require.NotNil(t, decoded.EMA10)
	assert.Equal(t, 187.42, *decoded.EMA10)

	// Warmup fields stay null on the wire
	assert.Nil(t, decoded.EMA200)
	assert.Nil(t, decoded.Supertrend)
}

func TestBuildMessages_RejectsInvalidRow(t *testing.T) {
	rows := []*models.IndicatorRow{
		{Ticker: "", Date: time.Now()},
	}

	_, err := buildMessages(rows)
	assert.Error(t, err)
}
