package api

import (
	"net/http"

	"github.com/okian/floorwatch/internal/domain/types"
	"github.com/okian/floorwatch/internal/seed"
)

const defaultHoursBack = 24

// handleSeed handles POST /api/seed?clear_existing=&hours_back=.
func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.seed"
	clearExisting, err := parseBoolParam(r, "clear_existing")
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	hours, err := parseIntParam(r, "hours_back", defaultHoursBack, seed.MinHoursBack, seed.MaxHoursBack)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	res, err := s.deps.Seeder.Seed(r.Context(), clearExisting, hours)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	msg := "Data seeded successfully"
	if clearExisting {
		msg = "Database refreshed successfully"
	}
	writeJSON(w, http.StatusOK, seedResponse(msg, res))
}

// handleAdminSeed handles POST /api/admin/seed?clear_existing=.
func (s *Server) handleAdminSeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_seed"
	clearExisting, err := parseBoolParam(r, "clear_existing")
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	res, err := s.deps.Seeder.AdminSeed(r.Context(), clearExisting)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	// The admin run reports the roster it maintains, created now or before.
	roster := s.deps.Seeder.Roster()
	res.WorkersCreated, res.WorkstationsCreated = len(roster.Workers), len(roster.Workstations)
	writeJSON(w, http.StatusOK, seedResponse("Admin seed completed", res))
}

func seedResponse(msg string, res seed.Result) types.SeedResponse {
	return types.SeedResponse{
		Message:             msg,
		WorkersCreated:      res.WorkersCreated,
		WorkstationsCreated: res.WorkstationsCreated,
		EventsCreated:       res.EventsCreated,
	}
}
