package api

import (
	"maps"
	"net/http"
)

// StatsProvider reports a component's statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler merges the statistics of several components.
type StatsHandler struct {
	providers []StatsProvider
}

// NewStatsHandler creates a stats handler. Later providers win on key
// collisions.
func NewStatsHandler(providers ...StatsProvider) *StatsHandler {
	return &StatsHandler{providers: providers}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := make(map[string]interface{})
	for _, p := range h.providers {
		if p != nil {
			maps.Copy(stats, p.GetStats())
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, stats)
}
