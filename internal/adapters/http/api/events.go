package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/floorwatch/internal/adapters/repository"
	"github.com/okian/floorwatch/internal/domain/types"
	"github.com/okian/floorwatch/internal/ingest"
	"github.com/okian/floorwatch/pkg/logger"
)

const (
	maxEventBody = 1 << 20
	maxBatchBody = 16 << 20
)

// duplicateMessage is returned with the stored event on a repeat submission.
const duplicateMessage = "Duplicate event ignored"

// handlePostEvent handles POST /api/events.
func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req types.EventRequest
	if err := decodeBody(w, r, maxEventBody, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, err := req.ToEvent()
	if err != nil {
		writeError(w, WrapKind(op, ErrValidation, err))
		return
	}

	res, err := s.deps.Ingest.IngestOne(r.Context(), ev)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	if res.Outcome == ingest.Duplicate {
		writeJSON(w, http.StatusOK, types.DuplicateResponse{
			Message: duplicateMessage,
			Event:   types.NewEventResponse(res.Event),
		})
		return
	}
	writeJSON(w, http.StatusCreated, types.NewEventResponse(res.Event))
}

// handlePostBatch handles POST /api/events/batch. Items that cannot be decoded
// are counted as errors at their position in the batch.
func (s *Server) handlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_batch"
	var req types.BatchRequest
	if err := decodeBody(w, r, maxBatchBody, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Events == nil {
		writeError(w, WrapKind(op, ErrValidation, errors.New("events is required")))
		return
	}

	items := make([]ingest.Item, len(req.Events))
	for i, raw := range req.Events {
		var payload types.EventRequest
		if err := json.Unmarshal(raw, &payload); err != nil {
			items[i].Err = fmt.Errorf("invalid event: %w", err)
			continue
		}
		ev, err := payload.ToEvent()
		if err != nil {
			items[i] = ingest.Item{Label: payload.Label(), Err: err}
			continue
		}
		items[i].Event = ev
	}

	res := s.deps.Ingest.IngestItems(r.Context(), items)
	errs := res.Errors
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, types.BatchResponse{
		SuccessCount:   res.SuccessCount,
		DuplicateCount: res.DuplicateCount,
		ErrorCount:     res.ErrorCount,
		Errors:         errs,
	})
}

// handleGetEvents handles GET /api/events.
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_events"
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	limit, err := parseIntParam(r, "limit", s.eventsDefaultLimit, 1, s.eventsMaxLimit)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	q := r.URL.Query()
	events, err := s.deps.Store.QueryEvents(r.Context(), repository.EventFilter{
		WorkerID:      q.Get("worker_id"),
		WorkstationID: q.Get("workstation_id"),
		Window:        window,
	}, limit)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	out := make([]types.EventResponse, len(events))
	for i, ev := range events {
		out[i] = types.NewEventResponse(ev)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(out)))
	writeJSON(w, http.StatusOK, out)
}

func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// fail writes err and logs it when it maps to a server error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", logger.String("op", opOf(err)), logger.Error(err))
	}
	if status == http.StatusInternalServerError {
		err = NewKind(opOf(err), ErrInternal)
	}
	writeError(w, err)
}
