package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/tradesetup/indicator-pipeline/internal/config"
	"github.com/tradesetup/indicator-pipeline/internal/models"
	"github.com/tradesetup/indicator-pipeline/pkg/logger"
)

var (
	// Metrics for stream publishing
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indicator_publish_total",
			Help: "Total number of indicator rows published to streams",
		},
		[]string{"stream"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indicator_publish_errors_total",
			Help: "Total number of publish errors",
		},
		[]string{"stream"},
	)

	publishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indicator_publish_latency_seconds",
			Help:    "Publish latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"stream"},
	)
)

// RowPublisher publishes computed indicator rows to a Redis stream so that
// downstream scanners can pick up fresh values without polling the database.
type RowPublisher struct {
	client *redis.Client
	stream string
}

// NewRowPublisher connects to Redis and returns a publisher for the given stream
func NewRowPublisher(cfg config.RedisConfig, stream string) (*RowPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("stream", stream),
	)

	return &RowPublisher{client: rdb, stream: stream}, nil
}

// PublishRows publishes a batch of rows to the stream using one pipeline
func (p *RowPublisher) PublishRows(ctx context.Context, rows []*models.IndicatorRow) error {
	if len(rows) == 0 {
		return nil
	}

	messages, err := buildMessages(rows)
	if err != nil {
		return err
	}

	start := time.Now()

	pipe := p.client.Pipeline()
	for _, msg := range messages {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			Values: msg,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		publishErrors.WithLabelValues(p.stream).Add(float64(len(messages)))
		return fmt.Errorf("failed to publish batch to stream %s: %w", p.stream, err)
	}

	publishTotal.WithLabelValues(p.stream).Add(float64(len(messages)))
	publishLatency.WithLabelValues(p.stream).Observe(time.Since(start).Seconds())

	logger.Debug("Published rows to stream",
		logger.String("stream", p.stream),
		logger.Int("count", len(messages)),
		logger.Duration("latency", time.Since(start)),
	)

	return nil
}

// buildMessages serializes rows into stream messages. Each message carries
// the full row as one JSON field plus the ticker and date for cheap filtering.
func buildMessages(rows []*models.IndicatorRow) ([]map[string]interface{}, error) {
	messages := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("invalid indicator row: %w", err)
		}
		rowJSON, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal row: %w", err)
		}
		messages = append(messages, map[string]interface{}{
			"ticker": row.Ticker,
			"date":   row.Date.Format("2006-01-02"),
			"row":    string(rowJSON),
		})
	}
	return messages, nil
}

// Close closes the Redis connection
func (p *RowPublisher) Close() error {
	return p.client.Close()
}
