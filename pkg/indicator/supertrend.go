package indicator

import (
	"fmt"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

// Supertrend calculates the Supertrend overlay from ATR-based bands.
//
// Basic bands: mid ± multiplier*ATR, mid = (high+low)/2. Final bands ratchet:
// the upper band only moves down (or resets after the prior close breached
// it), the lower band only moves up. The trend flips when the close crosses
// the active final band: up -> down when close <= finalLower, down -> up when
// close >= finalUpper. Output is finalLower while the trend is up and
// finalUpper while it is down.
//
// The initial direction at first ATR convergence is up if close > finalUpper,
// down otherwise.
type Supertrend struct {
	name       string
	multiplier float64
	atr        *ATR
	finalUpper float64
	finalLower float64
	uptrend    bool
	prevClose  float64
	value      float64
	ready      bool
	processed  int
}

// NewSupertrend creates a new Supertrend calculator (typically period 10, multiplier 3.0)
func NewSupertrend(period int, multiplier float64) (*Supertrend, error) {
	if multiplier <= 0 {
		return nil, fmt.Errorf("supertrend multiplier must be positive, got %g", multiplier)
	}
	atr, err := NewATR(period)
	if err != nil {
		return nil, err
	}

	return &Supertrend{
		name:       "supertrend",
		multiplier: multiplier,
		atr:        atr,
	}, nil
}

// Name returns the indicator name
func (s *Supertrend) Name() string {
	return s.name
}

// Update processes a new bar and updates the Supertrend calculation
func (s *Supertrend) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	s.processed++
	prevClose := s.prevClose

	atrValue, err := s.atr.Update(bar)
	if err != nil {
		return 0, err
	}
	s.prevClose = bar.Close

	if !s.atr.IsReady() {
		return 0, nil
	}

	mid := (bar.High + bar.Low) / 2
	upperBasic := mid + s.multiplier*atrValue
	lowerBasic := mid - s.multiplier*atrValue

	if !s.ready {
		s.finalUpper = upperBasic
		s.finalLower = lowerBasic
		s.uptrend = bar.Close > s.finalUpper
		s.ready = true
	} else {
		if upperBasic < s.finalUpper || prevClose > s.finalUpper {
			s.finalUpper = upperBasic
		}
		if lowerBasic > s.finalLower || prevClose < s.finalLower {
			s.finalLower = lowerBasic
		}

		if s.uptrend && bar.Close <= s.finalLower {
			s.uptrend = false
		} else if !s.uptrend && bar.Close >= s.finalUpper {
			s.uptrend = true
		}
	}

	if s.uptrend {
		s.value = s.finalLower
	} else {
		s.value = s.finalUpper
	}

	return s.value, nil
}

// Value returns the current Supertrend value
func (s *Supertrend) Value() (float64, error) {
	if !s.ready {
		return 0, fmt.Errorf("supertrend not ready: need at least %d bars", s.atr.WindowSize())
	}
	return s.value, nil
}

// Uptrend returns the current trend direction; only meaningful once ready.
func (s *Supertrend) Uptrend() bool {
	return s.uptrend
}

// Reset clears the Supertrend state
func (s *Supertrend) Reset() {
	s.atr.Reset()
	s.finalUpper = 0
	s.finalLower = 0
	s.uptrend = false
	s.prevClose = 0
	s.value = 0
	s.ready = false
	s.processed = 0
}

// IsReady returns true if the Supertrend has enough data
func (s *Supertrend) IsReady() bool {
	return s.ready
}

// WindowSize returns the number of bars required (the ATR period)
func (s *Supertrend) WindowSize() int {
	return s.atr.WindowSize()
}

// BarsProcessed returns the number of bars processed
func (s *Supertrend) BarsProcessed() int {
	return s.processed
}
