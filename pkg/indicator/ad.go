package indicator

import (
	"fmt"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

// AD calculates the Accumulation/Distribution line: the cumulative sum of
// money flow volume, MFM * volume, where
// MFM = ((close-low) - (high-close)) / (high-low), or 0 when high == low.
// Like OBV, the absolute level depends on where the history starts.
type AD struct {
	total     float64
	started   bool
	processed int
}

// NewAD creates a new AD calculator
func NewAD() *AD {
	return &AD{}
}

// Name returns the indicator name
func (a *AD) Name() string {
	return "ad"
}

// Update processes a new bar and updates the AD total
func (a *AD) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	a.processed++
	a.started = true

	spread := bar.High - bar.Low
	if spread == 0 {
		return a.total, nil
	}

	mfm := ((bar.Close - bar.Low) - (bar.High - bar.Close)) / spread
	a.total += mfm * float64(bar.Volume)

	return a.total, nil
}

// Value returns the current AD total
func (a *AD) Value() (float64, error) {
	if !a.started {
		return 0, fmt.Errorf("AD not ready: need at least 1 bar")
	}
	return a.total, nil
}

// Reset clears the AD state
func (a *AD) Reset() {
	a.total = 0
	a.started = false
	a.processed = 0
}

// IsReady returns true if the AD has enough data
func (a *AD) IsReady() bool {
	return a.started
}

// WindowSize returns 1 (AD is valid from the first bar)
func (a *AD) WindowSize() int {
	return 1
}

// BarsProcessed returns the number of bars processed
func (a *AD) BarsProcessed() int {
	return a.processed
}
