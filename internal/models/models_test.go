package models

import (
	"errors"
	"testing"
	"time"
)

func validBar() *Bar {
	return &Bar{
		Ticker: "AAPL",
		Date:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Open:   100,
		High:   102,
		Low:    99,
		Close:  101,
		Volume: 1000,
	}
}

func TestBar_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Bar)
		wantErr error
	}{
		{"valid", func(b *Bar) {}, nil},
		{"empty ticker", func(b *Bar) { b.Ticker = "" }, ErrInvalidTicker},
		{"zero date", func(b *Bar) { b.Date = time.Time{} }, ErrInvalidDate},
		{"high below low", func(b *Bar) { b.High = 98 }, ErrInvalidBar},
		{"negative volume", func(b *Bar) { b.Volume = -1 }, ErrInvalidVolume},
		{"zero volume is fine", func(b *Bar) { b.Volume = 0 }, nil},
		{"high equals low is fine", func(b *Bar) { b.High = 100; b.Low = 100 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := validBar()
			tt.mutate(bar)
			err := bar.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIndicatorRow_Validate(t *testing.T) {
	row := &IndicatorRow{
		Ticker: "AAPL",
		Date:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := row.Validate(); err != nil {
		t.Errorf("Expected valid row, got %v", err)
	}

	row.Ticker = ""
	if !errors.Is(row.Validate(), ErrInvalidTicker) {
		t.Error("Expected ErrInvalidTicker for empty ticker")
	}

	row.Ticker = "AAPL"
	row.Date = time.Time{}
	if !errors.Is(row.Validate(), ErrInvalidDate) {
		t.Error("Expected ErrInvalidDate for zero date")
	}
}
