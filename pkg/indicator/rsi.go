package indicator

import (
	"fmt"
	"math"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

// RSI calculates the Relative Strength Index
// RSI = 100 - (100 / (1 + RS))
// where RS = Average Gain / Average Loss over the period.
// The averages use Wilder smoothing, seeded at the period-th close-to-close
// change as simple means of the first `period` gains and losses.
type RSI struct {
	period    int
	name      string
	prevClose float64
	hasPrev   bool
	sumGain   float64
	sumLoss   float64
	changes   int
	avgGain   float64
	avgLoss   float64
	ready     bool
	processed int
}

// NewRSI creates a new RSI calculator with the specified period (typically 14)
func NewRSI(period int) (*RSI, error) {
	if period < 2 {
		return nil, fmt.Errorf("RSI period must be at least 2, got %d", period)
	}

	return &RSI{
		period: period,
		name:   fmt.Sprintf("rsi_%d", period),
	}, nil
}

// Name returns the indicator name
func (r *RSI) Name() string {
	return r.name
}

// Update processes a new bar and updates the RSI calculation
func (r *RSI) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	r.processed++

	// First bar: just store the close price
	if !r.hasPrev {
		r.prevClose = bar.Close
		r.hasPrev = true
		return 0, nil
	}

	change := bar.Close - r.prevClose
	r.prevClose = bar.Close

	var gain, loss float64
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if !r.ready {
		// Simple averages over the first `period` changes seed the recurrence
		r.sumGain += gain
		r.sumLoss += loss
		r.changes++
		if r.changes < r.period {
			return 0, nil
		}
		r.avgGain = r.sumGain / float64(r.period)
		r.avgLoss = r.sumLoss / float64(r.period)
		r.ready = true
		return r.calculateRSI(), nil
	}

	// Wilder's smoothing: New Avg = ((Old Avg * (Period - 1)) + New Value) / Period
	r.avgGain = ((r.avgGain * float64(r.period-1)) + gain) / float64(r.period)
	r.avgLoss = ((r.avgLoss * float64(r.period-1)) + loss) / float64(r.period)

	return r.calculateRSI(), nil
}

// calculateRSI computes the RSI value
func (r *RSI) calculateRSI() float64 {
	if r.avgLoss == 0 {
		return 100.0 // All gains, no losses
	}

	rs := r.avgGain / r.avgLoss
	rsi := 100.0 - (100.0 / (1.0 + rs))

	if math.IsNaN(rsi) || math.IsInf(rsi, 0) {
		return 50.0 // Default to neutral
	}

	return math.Max(0.0, math.Min(100.0, rsi))
}

// Value returns the current RSI value
func (r *RSI) Value() (float64, error) {
	if !r.ready {
		return 0, fmt.Errorf("RSI not ready: need at least %d bars", r.period+1)
	}
	return r.calculateRSI(), nil
}

// Reset clears the RSI state
func (r *RSI) Reset() {
	r.prevClose = 0
	r.hasPrev = false
	r.sumGain = 0
	r.sumLoss = 0
	r.changes = 0
	r.avgGain = 0
	r.avgLoss = 0
	r.ready = false
	r.processed = 0
}

// IsReady returns true if the RSI has enough data
func (r *RSI) IsReady() bool {
	return r.ready
}

// WindowSize returns the number of bars required (period + 1 for first change)
func (r *RSI) WindowSize() int {
	return r.period + 1
}

// BarsProcessed returns the number of bars processed
func (r *RSI) BarsProcessed() int {
	return r.processed
}
