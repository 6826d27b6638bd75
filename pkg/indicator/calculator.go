package indicator

import (
	"github.com/tradesetup/indicator-pipeline/internal/models"
)

// Calculator is the interface for computing technical indicators over daily bars.
// Each indicator is a small state machine with an explicit seed-then-recur
// contract: Update consumes bars in chronological order, IsReady reports
// whether the warmup has been satisfied and the value can be trusted.
type Calculator interface {
	// Name returns the unique name of this indicator (e.g., "rsi_14", "ema_20")
	Name() string

	// Update processes a new bar and updates the indicator state.
	// Returns the new indicator value; the value is only meaningful
	// once IsReady reports true.
	Update(bar *models.Bar) (float64, error)

	// Value returns the current indicator value.
	// Returns 0 and an error if not enough data has been processed.
	Value() (float64, error)

	// Reset clears the indicator state
	Reset()

	// IsReady returns true if the indicator has enough data to produce a valid value
	IsReady() bool
}

// WindowedCalculator extends Calculator for indicators that require a window of bars
type WindowedCalculator interface {
	Calculator

	// WindowSize returns the number of bars required for this indicator
	WindowSize() int

	// BarsProcessed returns the number of bars processed so far
	BarsProcessed() int
}
