package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradesetup/indicator-pipeline/internal/engine"
	"github.com/tradesetup/indicator-pipeline/internal/models"
	"github.com/tradesetup/indicator-pipeline/internal/storage"
	"github.com/tradesetup/indicator-pipeline/pkg/logger"
)

// RecomputeHandler exposes on-demand indicator recomputes for operators.
// Scheduled batch runs go through cmd/pipeline; this endpoint covers the
// one-off backfill or repair of a single ticker.
type RecomputeHandler struct {
	engine *engine.Engine
	sink   storage.IndicatorSink
}

// NewRecomputeHandler creates a new recompute handler
func NewRecomputeHandler(eng *engine.Engine, sink storage.IndicatorSink) *RecomputeHandler {
	return &RecomputeHandler{
		engine: eng,
		sink:   sink,
	}
}

// Recompute handles POST /api/v1/recompute/{ticker}
// An optional ?from=YYYY-MM-DD query switches to an incremental run.
func (h *RecomputeHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ticker := vars["ticker"]

	var from *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = &parsed
	}

	runID := uuid.New().String()

	result, err := h.engine.Recompute(r.Context(), ticker, from)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNoBars):
			respondWithError(w, http.StatusNotFound, "No price bars for ticker")
		case errors.Is(err, models.ErrInvalidTicker):
			respondWithError(w, http.StatusBadRequest, "Invalid ticker")
		default:
			logger.Error("Recompute failed",
				logger.String("run_id", runID),
				logger.String("ticker", ticker),
				logger.ErrorField(err),
			)
			respondWithError(w, http.StatusInternalServerError, "Recompute failed")
		}
		return
	}

	if err := h.sink.UpsertRows(r.Context(), result.Rows); err != nil {
		logger.Error("Failed to persist recompute",
			logger.String("run_id", runID),
			logger.String("ticker", ticker),
			logger.ErrorField(err),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to persist rows")
		return
	}

	logger.Info("Recompute via API",
		logger.String("run_id", runID),
		logger.String("ticker", ticker),
		logger.Int("rows", len(result.Rows)),
		logger.Bool("reduced_accuracy", result.ReducedAccuracy),
	)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":           runID,
		"ticker":           result.Ticker,
		"rows":             len(result.Rows),
		"bars_processed":   result.BarsProcessed,
		"bars_rejected":    result.BarsRejected,
		"reduced_accuracy": result.ReducedAccuracy,
	})
}

// LatestDate handles GET /api/v1/indicators/{ticker}/latest
func (h *RecomputeHandler) LatestDate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ticker := vars["ticker"]

	latest, ok, err := h.sink.LatestDate(r.Context(), ticker)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to query latest date")
		return
	}
	if !ok {
		respondWithError(w, http.StatusNotFound, "No indicator rows for ticker")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":      ticker,
		"latest_date": latest.Format("2006-01-02"),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewRouter builds the admin API router
func NewRouter(handler *RecomputeHandler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", Health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/recompute/{ticker}", handler.Recompute).Methods("POST")
	v1.HandleFunc("/indicators/{ticker}/latest", handler.LatestDate).Methods("GET")

	chain := ChainMiddleware(
		LoggingMiddleware(),
		RecoveryMiddleware(),
	)
	router.Use(mux.MiddlewareFunc(chain))

	return router
}
