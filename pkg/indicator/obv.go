package indicator

import (
	"fmt"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

// OBV calculates On-Balance Volume: a cumulative total that adds the bar's
// volume when the close rises, subtracts it when the close falls, and is
// unchanged when the close is flat. The total is seeded to 0 at the first
// bar; only OBV deltas are analytically meaningful, the absolute level
// depends on where the history starts.
type OBV struct {
	prevClose float64
	hasPrev   bool
	total     float64
	processed int
}

// NewOBV creates a new OBV calculator
func NewOBV() *OBV {
	return &OBV{}
}

// Name returns the indicator name
func (o *OBV) Name() string {
	return "obv"
}

// Update processes a new bar and updates the OBV total
func (o *OBV) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	o.processed++

	if !o.hasPrev {
		o.prevClose = bar.Close
		o.hasPrev = true
		return o.total, nil
	}

	if bar.Close > o.prevClose {
		o.total += float64(bar.Volume)
	} else if bar.Close < o.prevClose {
		o.total -= float64(bar.Volume)
	}
	o.prevClose = bar.Close

	return o.total, nil
}

// Value returns the current OBV total
func (o *OBV) Value() (float64, error) {
	if !o.hasPrev {
		return 0, fmt.Errorf("OBV not ready: need at least 1 bar")
	}
	return o.total, nil
}

// Reset clears the OBV state
func (o *OBV) Reset() {
	o.prevClose = 0
	o.hasPrev = false
	o.total = 0
	o.processed = 0
}

// IsReady returns true if the OBV has enough data
func (o *OBV) IsReady() bool {
	return o.hasPrev
}

// WindowSize returns 1 (OBV is valid from the first bar)
func (o *OBV) WindowSize() int {
	return 1
}

// BarsProcessed returns the number of bars processed
func (o *OBV) BarsProcessed() int {
	return o.processed
}
