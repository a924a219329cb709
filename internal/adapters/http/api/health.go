package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/floorwatch/internal/domain/types"
	"github.com/okian/floorwatch/pkg/logger"
)

const pingTimeout = 2 * time.Second

// handleRoot handles GET / with the service identity.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.Info{
		Name:          s.name,
		Version:       s.version,
		Status:        "operational",
		Environment:   s.environment,
		Documentation: "/api-docs",
	})
}

// handleHealth handles GET /health. A failing store degrades the status but
// the endpoint still answers 200 so load balancers can tell the process is up.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	db, status := "healthy", "healthy"
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.Error(ctx, "database health check failed", logger.Error(err))
		db, status = "unhealthy", "degraded"
	}
	writeJSON(w, http.StatusOK, types.Health{
		Status:      status,
		Timestamp:   s.now().UTC(),
		Database:    db,
		Environment: s.environment,
	})
}
