package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tradesetup/indicator-pipeline/internal/models"
	"github.com/tradesetup/indicator-pipeline/internal/storage"
	"github.com/tradesetup/indicator-pipeline/pkg/indicator"
	"github.com/tradesetup/indicator-pipeline/pkg/logger"
)

// Fixed indicator parameters for the daily pipeline
const (
	rsiPeriod            = 14
	atrPeriod            = 14
	supertrendPeriod     = 10
	supertrendMultiplier = 3.0
	volumeSurgePeriod    = 20
)

var emaPeriods = []int{10, 20, 50, 100, 200}

var (
	engineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indicator_engine_runs_total",
			Help: "Total number of indicator recompute runs",
		},
		[]string{"mode", "status"},
	)

	engineRowsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indicator_engine_rows_emitted_total",
			Help: "Total number of indicator rows emitted",
		},
	)

	engineBarsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indicator_engine_bars_rejected_total",
			Help: "Total number of malformed or out-of-order bars rejected",
		},
	)

	engineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indicator_engine_run_duration_seconds",
			Help:    "Duration of one ticker recompute run",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"mode"},
	)
)

// calculatorSet is one fresh set of indicator state machines. Every run gets
// its own set; state is never shared across tickers or reused between runs.
type calculatorSet struct {
	emas        map[int]*indicator.EMA
	rsi         *indicator.RSI
	atr         *indicator.ATR
	supertrend  *indicator.Supertrend
	obv         *indicator.OBV
	ad          *indicator.AD
	volumeSurge *indicator.VolumeSurge
}

func newCalculatorSet() (*calculatorSet, error) {
	set := &calculatorSet{
		emas: make(map[int]*indicator.EMA, len(emaPeriods)),
		obv:  indicator.NewOBV(),
		ad:   indicator.NewAD(),
	}

	for _, period := range emaPeriods {
		ema, err := indicator.NewEMA(period)
		if err != nil {
			return nil, err
		}
		set.emas[period] = ema
	}

	rsi, err := indicator.NewRSI(rsiPeriod)
	if err != nil {
		return nil, err
	}
	set.rsi = rsi

	atr, err := indicator.NewATR(atrPeriod)
	if err != nil {
		return nil, err
	}
	set.atr = atr

	st, err := indicator.NewSupertrend(supertrendPeriod, supertrendMultiplier)
	if err != nil {
		return nil, err
	}
	set.supertrend = st

	vs, err := indicator.NewVolumeSurge(volumeSurgePeriod)
	if err != nil {
		return nil, err
	}
	set.volumeSurge = vs

	return set, nil
}

// step feeds one bar to every calculator and builds the row for that date.
// Calculators still inside their warmup window leave their field nil.
func (c *calculatorSet) step(bar *models.Bar) (*models.IndicatorRow, error) {
	row := &models.IndicatorRow{
		Ticker: bar.Ticker,
		Date:   bar.Date,
	}

	for period, ema := range c.emas {
		val, err := ema.Update(bar)
		if err != nil {
			return nil, fmt.Errorf("ema_%d: %w", period, err)
		}
		if ema.IsReady() {
			v := val
			switch period {
			case 10:
				row.EMA10 = &v
			case 20:
				row.EMA20 = &v
			case 50:
				row.EMA50 = &v
			case 100:
				row.EMA100 = &v
			case 200:
				row.EMA200 = &v
			}
		}
	}

	val, err := c.rsi.Update(bar)
	if err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	if c.rsi.IsReady() {
		v := val
		row.RSI = &v
	}

	val, err = c.atr.Update(bar)
	if err != nil {
		return nil, fmt.Errorf("atr: %w", err)
	}
	if c.atr.IsReady() {
		v := val
		row.ATR = &v
	}

	val, err = c.supertrend.Update(bar)
	if err != nil {
		return nil, fmt.Errorf("supertrend: %w", err)
	}
	if c.supertrend.IsReady() {
		v := val
		row.Supertrend = &v
	}

	val, err = c.obv.Update(bar)
	if err != nil {
		return nil, fmt.Errorf("obv: %w", err)
	}
	if c.obv.IsReady() {
		v := val
		row.OBV = &v
	}

	val, err = c.ad.Update(bar)
	if err != nil {
		return nil, fmt.Errorf("ad: %w", err)
	}
	if c.ad.IsReady() {
		v := val
		row.AD = &v
	}

	val, err = c.volumeSurge.Update(bar)
	if err != nil {
		return nil, fmt.Errorf("volume_surge: %w", err)
	}
	if c.volumeSurge.IsReady() {
		v := val
		row.VolumeSurge = &v
	}

	return row, nil
}

// RunResult is the outcome of one ticker recompute run
type RunResult struct {
	Ticker          string
	Rows            []*models.IndicatorRow
	BarsProcessed   int
	BarsRejected    int
	ReducedAccuracy bool
}

// Engine recomputes the full indicator set for one ticker at a time.
// A nil `from` means full recompute over all history; a non-nil `from`
// replays the planner's warmup window first and emits rows from `from` on.
type Engine struct {
	source  storage.PriceSource
	planner *WarmupPlanner
}

// New creates an indicator engine over the given price source
func New(source storage.PriceSource, planner *WarmupPlanner) *Engine {
	return &Engine{
		source:  source,
		planner: planner,
	}
}

// Recompute runs the full calculator set over one ticker's bars
func (e *Engine) Recompute(ctx context.Context, ticker string, from *time.Time) (*RunResult, error) {
	if ticker == "" {
		return nil, models.ErrInvalidTicker
	}

	mode := "full"
	if from != nil {
		mode = "incremental"
	}

	start := time.Now()
	result, err := e.recompute(ctx, ticker, from)
	engineRunDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if err != nil {
		engineRunsTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}

	engineRunsTotal.WithLabelValues(mode, "success").Inc()
	engineRowsEmitted.Add(float64(len(result.Rows)))
	engineBarsRejected.Add(float64(result.BarsRejected))

	logger.Debug("Recompute complete",
		logger.String("ticker", ticker),
		logger.String("mode", mode),
		logger.Int("rows", len(result.Rows)),
		logger.Int("bars_processed", result.BarsProcessed),
		logger.Int("bars_rejected", result.BarsRejected),
		logger.Bool("reduced_accuracy", result.ReducedAccuracy),
		logger.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func (e *Engine) recompute(ctx context.Context, ticker string, from *time.Time) (*RunResult, error) {
	var (
		warmup  []*models.Bar
		tail    []*models.Bar
		reduced bool
		err     error
	)

	if from == nil {
		tail, err = e.source.AllBars(ctx, ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to load bars for %s: %w", ticker, err)
		}
	} else {
		plan, planErr := e.planner.Plan(ctx, ticker, *from)
		if planErr != nil {
			return nil, planErr
		}
		warmup = plan.Warmup
		reduced = plan.ReducedAccuracy

		tail, err = e.source.BarsFrom(ctx, ticker, *from)
		if err != nil {
			return nil, fmt.Errorf("failed to load bars for %s: %w", ticker, err)
		}
	}

	if len(warmup) == 0 && len(tail) == 0 {
		return nil, models.ErrNoBars
	}

	calcs, err := newCalculatorSet()
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		Ticker:          ticker,
		ReducedAccuracy: reduced,
	}

	var lastDate time.Time
	process := func(bar *models.Bar, emit bool) error {
		if err := bar.Validate(); err != nil {
			result.BarsRejected++
			logger.Warn("Rejecting malformed bar",
				logger.String("ticker", ticker),
				logger.Time("date", bar.Date),
				logger.ErrorField(err),
			)
			return nil
		}
		if !lastDate.IsZero() && !bar.Date.After(lastDate) {
			result.BarsRejected++
			logger.Warn("Rejecting out-of-order bar",
				logger.String("ticker", ticker),
				logger.Time("date", bar.Date),
				logger.Time("last_date", lastDate),
				logger.ErrorField(models.ErrOutOfOrderBar),
			)
			return nil
		}
		lastDate = bar.Date

		row, err := calcs.step(bar)
		if err != nil {
			return fmt.Errorf("calculator failure on %s at %s: %w",
				ticker, bar.Date.Format("2006-01-02"), err)
		}
		result.BarsProcessed++
		if emit {
			result.Rows = append(result.Rows, row)
		}
		return nil
	}

	for _, bar := range warmup {
		if err := process(bar, false); err != nil {
			return nil, err
		}
	}
	for _, bar := range tail {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Trim guard: rows before `from` belong to the warmup window
		emit := from == nil || !bar.Date.Before(*from)
		if err := process(bar, emit); err != nil {
			return nil, err
		}
	}

	return result, nil
}
