package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tradesetup/indicator-pipeline/internal/models"
	"github.com/tradesetup/indicator-pipeline/internal/storage"
)

// DefaultWarmupBars is the number of prior trading bars replayed before an
// incremental run so that every calculator reaches steady state. 300 bars
// leaves the 200-period EMA a hundred bars of convergence past its seed.
const DefaultWarmupBars = 300

// minWarmupBars is the floor: the longest calculator window in the set.
const minWarmupBars = 200

// Plan describes the warmup window for one incremental run.
type Plan struct {
	// Warmup holds the bars to replay before `from`, in ascending date order
	Warmup []*models.Bar

	// ReducedAccuracy is set when the ticker has fewer prior bars than
	// requested. The run still proceeds with whatever history exists.
	ReducedAccuracy bool
}

// WarmupPlanner decides how much history to replay before an incremental run.
// Every ticker gets the same uniform window; full recomputes skip planning
// entirely because they already start from the first bar.
type WarmupPlanner struct {
	source     storage.PriceSource
	warmupBars int
}

// NewWarmupPlanner creates a planner over the given price source.
// warmupBars values below the longest calculator window are raised to it.
func NewWarmupPlanner(source storage.PriceSource, warmupBars int) *WarmupPlanner {
	if warmupBars < minWarmupBars {
		warmupBars = minWarmupBars
	}
	return &WarmupPlanner{
		source:     source,
		warmupBars: warmupBars,
	}
}

// WarmupBars returns the configured window size
func (p *WarmupPlanner) WarmupBars() int {
	return p.warmupBars
}

// Plan loads the warmup window immediately preceding `from` for a ticker
func (p *WarmupPlanner) Plan(ctx context.Context, ticker string, from time.Time) (*Plan, error) {
	bars, err := p.source.BarsBefore(ctx, ticker, from, p.warmupBars)
	if err != nil {
		return nil, fmt.Errorf("failed to load warmup bars for %s: %w", ticker, err)
	}

	return &Plan{
		Warmup:          bars,
		ReducedAccuracy: len(bars) < p.warmupBars,
	}, nil
}
