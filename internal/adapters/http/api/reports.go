package api

import (
	"net/http"

	"github.com/okian/floorwatch/internal/domain/types"
)

// handleWorkerMetrics handles GET /api/metrics/workers.
func (s *Server) handleWorkerMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.worker_metrics"
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	ms, err := s.deps.Analytics.Workers(r.Context(), r.URL.Query().Get("worker_id"), window)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	out := make([]types.WorkerMetrics, len(ms))
	for i, m := range ms {
		out[i] = types.NewWorkerMetrics(m)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleWorkstationMetrics handles GET /api/metrics/workstations.
func (s *Server) handleWorkstationMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.workstation_metrics"
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	ms, err := s.deps.Analytics.Workstations(r.Context(), r.URL.Query().Get("workstation_id"), window)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	out := make([]types.WorkstationMetrics, len(ms))
	for i, m := range ms {
		out[i] = types.NewWorkstationMetrics(m)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleFactoryMetrics handles GET /api/metrics/factory.
func (s *Server) handleFactoryMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.factory_metrics"
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	f, err := s.deps.Analytics.Factory(r.Context(), window)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewFactoryMetrics(f))
}

// handleModelHealth handles GET /api/metrics/model-health.
func (s *Server) handleModelHealth(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Analytics.ModelHealth(r.Context())
	if err != nil {
		s.fail(w, r, Wrap("api.model_health", err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewModelHealth(rep))
}

// handleHeatmap handles GET /api/metrics/efficiency-heatmap.
func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	h, err := s.deps.Analytics.Heatmap(r.Context())
	if err != nil {
		s.fail(w, r, Wrap("api.heatmap", err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewHeatmap(h))
}
