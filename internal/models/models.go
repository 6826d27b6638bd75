package models

import (
	"time"
)

// Bar represents one daily OHLCV bar for a ticker.
// Bars are ordered ascending by date per ticker; holidays are simply absent.
type Bar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Validate validates a Bar
func (b *Bar) Validate() error {
	if b.Ticker == "" {
		return ErrInvalidTicker
	}
	if b.Date.IsZero() {
		return ErrInvalidDate
	}
	if b.High < b.Low {
		return ErrInvalidBar
	}
	if b.Volume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// IndicatorRow holds all computed indicator values for one (ticker, date).
// A nil field means the indicator's warmup was not yet satisfied on that date.
type IndicatorRow struct {
	Ticker      string    `json:"ticker"`
	Date        time.Time `json:"date"`
	EMA10       *float64  `json:"ema_10"`
	EMA20       *float64  `json:"ema_20"`
	EMA50       *float64  `json:"ema_50"`
	EMA100      *float64  `json:"ema_100"`
	EMA200      *float64  `json:"ema_200"`
	RSI         *float64  `json:"rsi"`
	ATR         *float64  `json:"atr"`
	Supertrend  *float64  `json:"supertrend"`
	OBV         *float64  `json:"obv"`
	AD          *float64  `json:"ad"`
	VolumeSurge *float64  `json:"volume_surge"`
}

// Validate validates an IndicatorRow
func (r *IndicatorRow) Validate() error {
	if r.Ticker == "" {
		return ErrInvalidTicker
	}
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
