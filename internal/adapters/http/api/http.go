// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/inkflow/internal/adapters/repository"
	"github.com/okian/inkflow/internal/domain/dedupe"
	"github.com/okian/inkflow/internal/domain/model"
	"github.com/okian/inkflow/internal/domain/types"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	dedupe.Deduper
	StatsProvider

	// Enqueue hands a validated batch to the engine. queue.ErrFull signals
	// backpressure.
	Enqueue(ctx context.Context, b *model.Batch) error

	// Read operations expose archived strokes.
	Stroke(ctx context.Context, id string) (types.StrokeView, error)
	Strokes(ctx context.Context, q repository.Query) ([]types.StrokeView, error)
	Preview(ctx context.Context, id string) ([]byte, error)

	// Stream serves live notifications over WebSocket.
	Stream() http.Handler
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	batchesHandler *BatchesHandler
	strokesHandler *StrokesHandler
	stream         http.Handler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		batchesHandler: NewBatchesHandler(deps),
		strokesHandler: NewStrokesHandler(deps),
		stream:         deps.Stream(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/batches", MetricsMiddleware(s.batchesHandler.HandlePostBatch, "batches"))
	mux.HandleFunc("/strokes", MetricsMiddleware(s.strokesHandler.HandleListStrokes, "strokes"))
	mux.HandleFunc("/strokes/", MetricsMiddleware(s.strokesHandler.HandleGetStroke, "stroke"))
	mux.HandleFunc("/stream", MetricsMiddleware(s.stream.ServeHTTP, "stream"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
