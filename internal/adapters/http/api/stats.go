package api

import (
	"net/http"

	"github.com/okian/inkflow/internal/domain/types"
)

// StatsProvider reports a snapshot of the stroke engine.
type StatsProvider interface {
	GetStats() types.EngineStats
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler wraps a StatsProvider.
func NewStatsHandler(p StatsProvider) *StatsHandler {
	return &StatsHandler{provider: p}
}

// HandleStats writes the engine snapshot. A stopped engine still answers
// with started=false so probes can tell stopped from unreachable.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
