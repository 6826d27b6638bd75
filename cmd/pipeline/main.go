package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradesetup/indicator-pipeline/internal/config"
	"github.com/tradesetup/indicator-pipeline/internal/engine"
	"github.com/tradesetup/indicator-pipeline/internal/pubsub"
	"github.com/tradesetup/indicator-pipeline/internal/storage"
	"github.com/tradesetup/indicator-pipeline/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("Starting indicator pipeline",
		logger.String("mode", cfg.Pipeline.Mode),
		logger.Int("tickers", len(cfg.Pipeline.Tickers)),
		logger.Int("workers", cfg.Pipeline.WorkerCount),
		logger.Int("warmup_bars", cfg.Pipeline.WarmupBars),
	)

	if len(cfg.Pipeline.Tickers) == 0 {
		logger.Error("PIPELINE_TICKERS must list at least one ticker")
		return 1
	}

	store, err := storage.NewPostgresClient(cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to Postgres", logger.ErrorField(err))
		return 1
	}
	defer store.Close()

	eng := engine.New(store, engine.NewWarmupPlanner(store, cfg.Pipeline.WarmupBars))
	runner := engine.NewBatchRunner(eng, store, cfg.Pipeline.WorkerCount)

	if cfg.Pipeline.PublishEnabled {
		publisher, err := pubsub.NewRowPublisher(cfg.Redis, cfg.Pipeline.PublishStream)
		if err != nil {
			logger.Error("Failed to connect to Redis", logger.ErrorField(err))
			return 1
		}
		defer publisher.Close()
		runner.SetPublisher(publisher)
	}

	// Health and metrics endpoint for the duration of the run
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		addr := fmt.Sprintf(":%d", cfg.API.HealthCheckPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("Health server failed", logger.ErrorField(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Pipeline.RunTimeout)
	defer cancel()

	start := time.Now()
	outcomes := runner.Run(ctx, cfg.Pipeline.Tickers, buildResolver(cfg, store))

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
			logger.Error("Ticker failed",
				logger.String("ticker", outcome.Ticker),
				logger.ErrorField(outcome.Err),
			)
			continue
		}
		logger.Info("Ticker complete",
			logger.String("ticker", outcome.Ticker),
			logger.Int("rows", outcome.RowCount),
			logger.Bool("reduced_accuracy", outcome.ReducedAccuracy),
		)
	}

	logger.Info("Pipeline run complete",
		logger.Int("tickers", len(outcomes)),
		logger.Int("failed", failed),
		logger.Duration("duration", time.Since(start)),
	)

	if failed > 0 {
		return 1
	}
	return 0
}

// buildResolver picks the per-ticker start date policy for this run.
// "recalculate" always replays full history; "update" resumes from the day
// after the last stored indicator row, unless PIPELINE_FROM_DATE pins it.
func buildResolver(cfg *config.Config, sink storage.IndicatorSink) engine.FromResolver {
	if cfg.Pipeline.Mode == "recalculate" {
		return engine.FullRecompute
	}

	if cfg.Pipeline.FromDate != "" {
		// Validated at config load
		from, _ := time.Parse("2006-01-02", cfg.Pipeline.FromDate)
		return engine.FixedFrom(from)
	}

	return func(ctx context.Context, ticker string) (*time.Time, error) {
		latest, ok, err := sink.LatestDate(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Nothing stored yet for this ticker, fall back to full history
			return nil, nil
		}
		from := latest.AddDate(0, 0, 1)
		return &from, nil
	}
}
