package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tradesetup/indicator-pipeline/internal/config"
	"github.com/tradesetup/indicator-pipeline/internal/models"
	"github.com/tradesetup/indicator-pipeline/pkg/logger"
)

var (
	// Metrics for Postgres operations
	indicatorUpsertTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indicator_upsert_rows_total",
			Help: "Total number of indicator rows upserted",
		},
		[]string{"status"}, // "success" or "error"
	)

	indicatorUpsertLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indicator_upsert_latency_seconds",
			Help:    "Upsert latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
	)

	priceQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "price_query_latency_seconds",
			Help:    "Price query latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"query"},
	)
)

// PostgresClient reads daily price bars and upserts computed indicator rows.
// It implements both PriceSource and IndicatorSink against the
// stock_price_daily and stock_indicators_daily tables.
type PostgresClient struct {
	db  *sql.DB
	cfg config.DatabaseConfig
}

// NewPostgresClient creates a new Postgres client
func NewPostgresClient(cfg config.DatabaseConfig) (*PostgresClient, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to Postgres",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Database),
	)

	return &PostgresClient{db: db, cfg: cfg}, nil
}

// AllBars returns the full available history for a ticker
func (p *PostgresClient) AllBars(ctx context.Context, ticker string) ([]*models.Bar, error) {
	start := time.Now()
	defer func() {
		priceQueryLatency.WithLabelValues("all_bars").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT ticker, date, open, high, low, close, volume
		FROM stock_price_daily
		WHERE ticker = $1
		ORDER BY date ASC
	`
	rows, err := p.db.QueryContext(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// BarsFrom returns all bars with date >= from
func (p *PostgresClient) BarsFrom(ctx context.Context, ticker string, from time.Time) ([]*models.Bar, error) {
	start := time.Now()
	defer func() {
		priceQueryLatency.WithLabelValues("bars_from").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT ticker, date, open, high, low, close, volume
		FROM stock_price_daily
		WHERE ticker = $1 AND date >= $2
		ORDER BY date ASC
	`
	rows, err := p.db.QueryContext(ctx, query, ticker, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// BarsBefore returns up to limit bars with date < before, ascending
func (p *PostgresClient) BarsBefore(ctx context.Context, ticker string, before time.Time, limit int) ([]*models.Bar, error) {
	start := time.Now()
	defer func() {
		priceQueryLatency.WithLabelValues("bars_before").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT ticker, date, open, high, low, close, volume
		FROM stock_price_daily
		WHERE ticker = $1 AND date < $2
		ORDER BY date DESC
		LIMIT $3
	`
	rows, err := p.db.QueryContext(ctx, query, ticker, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query warmup bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	return bars, nil
}

// UpsertRows writes indicator rows in one transaction keyed by (ticker, date)
func (p *PostgresClient) UpsertRows(ctx context.Context, rows []*models.IndicatorRow) error {
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_indicators_daily (
			ticker, date, ema_10, ema_20, ema_50, ema_100, ema_200,
			rsi, atr, supertrend, obv, ad, volume_surge
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (ticker, date) DO UPDATE SET
			ema_10 = EXCLUDED.ema_10,
			ema_20 = EXCLUDED.ema_20,
			ema_50 = EXCLUDED.ema_50,
			ema_100 = EXCLUDED.ema_100,
			ema_200 = EXCLUDED.ema_200,
			rsi = EXCLUDED.rsi,
			atr = EXCLUDED.atr,
			supertrend = EXCLUDED.supertrend,
			obv = EXCLUDED.obv,
			ad = EXCLUDED.ad,
			volume_surge = EXCLUDED.volume_surge
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("invalid indicator row: %w", err)
		}
		_, err := stmt.ExecContext(ctx,
			row.Ticker,
			row.Date,
			row.EMA10,
			row.EMA20,
			row.EMA50,
			row.EMA100,
			row.EMA200,
			row.RSI,
			row.ATR,
			row.Supertrend,
			row.OBV,
			row.AD,
			row.VolumeSurge,
		)
		if err != nil {
			indicatorUpsertTotal.WithLabelValues("error").Add(float64(len(rows)))
			return fmt.Errorf("failed to upsert indicator row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		indicatorUpsertTotal.WithLabelValues("error").Add(float64(len(rows)))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	indicatorUpsertTotal.WithLabelValues("success").Add(float64(len(rows)))
	indicatorUpsertLatency.Observe(time.Since(start).Seconds())

	logger.Debug("Upserted indicator rows",
		logger.String("ticker", rows[0].Ticker),
		logger.Int("count", len(rows)),
		logger.Duration("latency", time.Since(start)),
	)

	return nil
}

// LatestDate returns the most recent indicator date for a ticker
func (p *PostgresClient) LatestDate(ctx context.Context, ticker string) (time.Time, bool, error) {
	var latest sql.NullTime
	err := p.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM stock_indicators_daily WHERE ticker = $1`,
		ticker,
	).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest indicator date: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time, true, nil
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	return p.db.Close()
}

func scanBars(rows *sql.Rows) ([]*models.Bar, error) {
	var bars []*models.Bar
	for rows.Next() {
		var bar models.Bar
		if err := rows.Scan(
			&bar.Ticker,
			&bar.Date,
			&bar.Open,
			&bar.High,
			&bar.Low,
			&bar.Close,
			&bar.Volume,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, &bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return bars, nil
}
