package indicator

import (
	"fmt"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

// VolumeSurge calculates the ratio of the current bar's volume to the mean
// volume of the preceding `period` bars. The current bar is excluded from
// the mean, so the indicator needs `period` prior bars before producing a
// value.
type VolumeSurge struct {
	period    int
	name      string
	window    []float64
	windowSum float64
	value     float64
	ready     bool
	processed int
}

// NewVolumeSurge creates a new volume surge calculator (typically period 20)
func NewVolumeSurge(period int) (*VolumeSurge, error) {
	if period < 1 {
		return nil, fmt.Errorf("volume surge period must be at least 1, got %d", period)
	}

	return &VolumeSurge{
		period: period,
		name:   fmt.Sprintf("volume_surge_%d", period),
		window: make([]float64, 0, period),
	}, nil
}

// Name returns the indicator name
func (v *VolumeSurge) Name() string {
	return v.name
}

// Update processes a new bar and updates the volume surge ratio
func (v *VolumeSurge) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	v.processed++
	volume := float64(bar.Volume)

	// Ratio against the prior window, before the current bar enters it
	if len(v.window) == v.period {
		mean := v.windowSum / float64(v.period)
		if mean == 0 {
			v.value = 0 // All-zero prior volumes; ratio is undefined
		} else {
			v.value = volume / mean
		}
		v.ready = true
	}

	v.window = append(v.window, volume)
	v.windowSum += volume
	if len(v.window) > v.period {
		v.windowSum -= v.window[0]
		v.window = v.window[1:]
	}

	if !v.ready {
		return 0, nil
	}
	return v.value, nil
}

// Value returns the current volume surge ratio
func (v *VolumeSurge) Value() (float64, error) {
	if !v.ready {
		return 0, fmt.Errorf("volume surge not ready: need at least %d prior bars", v.period)
	}
	return v.value, nil
}

// Reset clears the volume surge state
func (v *VolumeSurge) Reset() {
	v.window = v.window[:0]
	v.windowSum = 0
	v.value = 0
	v.ready = false
	v.processed = 0
}

// IsReady returns true if the volume surge has enough data
func (v *VolumeSurge) IsReady() bool {
	return v.ready
}

// WindowSize returns the number of bars required (period prior bars + current)
func (v *VolumeSurge) WindowSize() int {
	return v.period + 1
}

// BarsProcessed returns the number of bars processed
func (v *VolumeSurge) BarsProcessed() int {
	return v.processed
}
