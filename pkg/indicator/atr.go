package indicator

import (
	"fmt"
	"math"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

// ATR calculates the Average True Range using Wilder smoothing.
// TR = max(high-low, |high-prevClose|, |low-prevClose|); the very first bar
// has no prior close, so TR falls back to high-low. The ATR is seeded as the
// simple mean of the first `period` true ranges.
type ATR struct {
	period    int
	name      string
	prevClose float64
	hasPrev   bool
	trSum     float64
	trCount   int
	value     float64
	ready     bool
	processed int
}

// NewATR creates a new ATR calculator with the specified period (typically 14)
func NewATR(period int) (*ATR, error) {
	if period < 1 {
		return nil, fmt.Errorf("ATR period must be at least 1, got %d", period)
	}

	return &ATR{
		period: period,
		name:   fmt.Sprintf("atr_%d", period),
	}, nil
}

// Name returns the indicator name
func (a *ATR) Name() string {
	return a.name
}

// Update processes a new bar and updates the ATR calculation
func (a *ATR) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	a.processed++

	tr := bar.High - bar.Low
	if a.hasPrev {
		tr = math.Max(tr, math.Abs(bar.High-a.prevClose))
		tr = math.Max(tr, math.Abs(bar.Low-a.prevClose))
	}
	a.prevClose = bar.Close
	a.hasPrev = true

	if !a.ready {
		a.trSum += tr
		a.trCount++
		if a.trCount < a.period {
			return 0, nil
		}
		a.value = a.trSum / float64(a.period)
		a.ready = true
		return a.value, nil
	}

	// Wilder's smoothing: ATR = (prevATR * (period-1) + TR) / period
	a.value = ((a.value * float64(a.period-1)) + tr) / float64(a.period)

	return a.value, nil
}

// Value returns the current ATR value
func (a *ATR) Value() (float64, error) {
	if !a.ready {
		return 0, fmt.Errorf("ATR not ready: need at least %d bars", a.period)
	}
	return a.value, nil
}

// Reset clears the ATR state
func (a *ATR) Reset() {
	a.prevClose = 0
	a.hasPrev = false
	a.trSum = 0
	a.trCount = 0
	a.value = 0
	a.ready = false
	a.processed = 0
}

// IsReady returns true if the ATR has enough data
func (a *ATR) IsReady() bool {
	return a.ready
}

// WindowSize returns the number of bars required
func (a *ATR) WindowSize() int {
	return a.period
}

// BarsProcessed returns the number of bars processed
func (a *ATR) BarsProcessed() int {
	return a.processed
}
