package api

import (
	"net/http"

	"github.com/okian/floorwatch/internal/domain/types"
)

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	ws, err := s.deps.Store.ListWorkers(r.Context())
	if err != nil {
		s.fail(w, r, Wrap("api.list_workers", err))
		return
	}
	out := make([]types.WorkerResponse, len(ws))
	for i, wk := range ws {
		out[i] = types.NewWorkerResponse(wk)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListWorkstations(w http.ResponseWriter, r *http.Request) {
	ss, err := s.deps.Store.ListWorkstations(r.Context())
	if err != nil {
		s.fail(w, r, Wrap("api.list_workstations", err))
		return
	}
	out := make([]types.WorkstationResponse, len(ss))
	for i, st := range ss {
		out[i] = types.NewWorkstationResponse(st)
	}
	writeJSON(w, http.StatusOK, out)
}
