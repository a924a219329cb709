package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/internal/domain/types"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := http.StatusText(status)
	if err != nil && status != http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// parseWindow reads start_time and end_time; either may be absent.
func parseWindow(r *http.Request) (model.Window, error) {
	var w model.Window
	q := r.URL.Query()
	if s := q.Get("start_time"); s != "" {
		t, err := types.ParseTimestamp(s)
		if err != nil {
			return w, fmt.Errorf("%w: start_time: %v", ErrValidation, err)
		}
		w.Start = &t
	}
	if s := q.Get("end_time"); s != "" {
		t, err := types.ParseTimestamp(s)
		if err != nil {
			return w, fmt.Errorf("%w: end_time: %v", ErrValidation, err)
		}
		w.End = &t
	}
	return w, nil
}

// parseIntParam returns def when name is absent and rejects values outside [lo, hi].
func parseIntParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrValidation, name)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", ErrValidation, name, lo, hi)
	}
	return v, nil
}

func parseBoolParam(r *http.Request, name string) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrValidation, name)
	}
	return v, nil
}
