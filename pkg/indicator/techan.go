package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"github.com/tradesetup/indicator-pipeline/internal/models"
)

// TechanCalculator wraps a techan indicator as a Calculator over daily bars.
// It is the extension point for indicators outside the fixed pipeline set,
// and is used to cross-check the hand-rolled recurrences in tests.
type TechanCalculator struct {
	name      string
	series    *techan.TimeSeries
	indicator techan.Indicator
	period    int
	ready     bool
	build     func(*techan.TimeSeries) techan.Indicator
}

// NewTechanCalculator creates a techan-backed calculator. The build function
// receives the internal time series so the indicator shares it with Update.
func NewTechanCalculator(
	name string,
	period int,
	build func(*techan.TimeSeries) techan.Indicator,
) *TechanCalculator {
	series := techan.NewTimeSeries()

	return &TechanCalculator{
		name:      name,
		series:    series,
		indicator: build(series),
		period:    period,
		build:     build,
	}
}

// NewTechanCloseEMA creates a techan EMA over close prices
func NewTechanCloseEMA(period int) *TechanCalculator {
	return NewTechanCalculator(
		fmt.Sprintf("techan_ema_%d", period),
		period,
		func(series *techan.TimeSeries) techan.Indicator {
			return techan.NewEMAIndicator(techan.NewClosePriceIndicator(series), period)
		},
	)
}

// Name returns the indicator name
func (t *TechanCalculator) Name() string {
	return t.name
}

// Update processes a new bar and updates the techan series
func (t *TechanCalculator) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	timePeriod := techan.NewTimePeriod(bar.Date, 24*time.Hour)
	candle := techan.NewCandle(timePeriod)
	candle.OpenPrice = big.NewDecimal(bar.Open)
	candle.MaxPrice = big.NewDecimal(bar.High)
	candle.MinPrice = big.NewDecimal(bar.Low)
	candle.ClosePrice = big.NewDecimal(bar.Close)
	candle.Volume = big.NewDecimal(float64(bar.Volume))

	t.series.AddCandle(candle)

	lastIndex := t.series.LastIndex()
	if lastIndex+1 < t.period {
		return 0, nil
	}

	value := t.indicator.Calculate(lastIndex).Float()
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, nil
	}

	t.ready = true
	return value, nil
}

// Value returns the current indicator value
func (t *TechanCalculator) Value() (float64, error) {
	if !t.ready {
		return 0, fmt.Errorf("%s not ready: need at least %d bars", t.name, t.period)
	}
	return t.indicator.Calculate(t.series.LastIndex()).Float(), nil
}

// Reset clears the techan series
func (t *TechanCalculator) Reset() {
	t.series = techan.NewTimeSeries()
	t.indicator = t.build(t.series)
	t.ready = false
}

// IsReady returns true if the indicator has enough data
func (t *TechanCalculator) IsReady() bool {
	return t.ready
}

// WindowSize returns the number of bars required
func (t *TechanCalculator) WindowSize() int {
	return t.period
}

// BarsProcessed returns the number of bars processed so far
func (t *TechanCalculator) BarsProcessed() int {
	return t.series.LastIndex() + 1
}
