package api

import (
	"context"
	"net/http"
)

// StatsProvider reports runtime statistics of the ingestion pipeline.
type StatsProvider interface {
	Stats(ctx context.Context) map[string]any
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Stats.Stats(r.Context()))
}
