// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"regexp"
	"time"
)

// DefaultMinConfidence is the lowest model confidence accepted for ingestion.
const DefaultMinConfidence = 0.7

// Timestamps are stored as Unix nanoseconds, which bounds the accepted range.
var (
	EarliestTimestamp = time.Unix(0, math.MinInt64).UTC()
	LatestTimestamp   = time.Unix(0, math.MaxInt64).UTC()
)

// TimestampInRange reports whether t can be stored without loss.
func TimestampInRange(t time.Time) bool {
	return !t.Before(EarliestTimestamp) && !t.After(LatestTimestamp)
}

var (
	workerIDPattern      = regexp.MustCompile(`^W[0-9]+$`)
	workstationIDPattern = regexp.MustCompile(`^S[0-9]+$`)
)

// Event is a single observation emitted by the upstream vision pipeline.
// Timestamp is when the subject was observed; CreatedAt is when the row was
// stored. The two differ whenever a sender retries or buffers.
type Event struct {
	ID            int64     // store-assigned identifier, zero until persisted
	Timestamp     time.Time // observation time (UTC)
	WorkerID      string    // W<digits>
	WorkstationID string    // S<digits>
	Kind          Kind
	Confidence    float64 // model confidence in [0,1]
	Count         int     // units produced; meaningful for product_count only
	CreatedAt     time.Time
}

// DedupKey identifies one logical event regardless of how often it was delivered.
type DedupKey struct {
	Timestamp time.Time
	WorkerID  string
	Kind      Kind
}

// Key returns the deduplication key of e.
func (e Event) Key() DedupKey {
	return DedupKey{Timestamp: e.Timestamp.UTC(), WorkerID: e.WorkerID, Kind: e.Kind}
}

// Label renders the subject and observation time, e.g. "W1@S2 2026-01-21T14:30:00Z".
func (e Event) Label() string {
	return fmt.Sprintf("%s@%s %s", e.WorkerID, e.WorkstationID, e.Timestamp.UTC().Format(time.RFC3339))
}

// Normalize returns a copy with the timestamp in UTC.
func (e Event) Normalize() Event {
	e.Timestamp = e.Timestamp.UTC()
	return e
}

// Validate checks the boundary rules for an inbound event.
// minConfidence values <= 0 fall back to DefaultMinConfidence.
func (e Event) Validate(minConfidence float64) error {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	switch {
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	case !TimestampInRange(e.Timestamp):
		return fmt.Errorf("%w: timestamp %s outside %d..%d", ErrInvalidEvent,
			e.Timestamp.UTC().Format(time.RFC3339), EarliestTimestamp.Year(), LatestTimestamp.Year())
	case !ValidWorkerID(e.WorkerID):
		return fmt.Errorf("%w: worker_id %q must match W<digits>", ErrInvalidEvent, e.WorkerID)
	case !ValidWorkstationID(e.WorkstationID):
		return fmt.Errorf("%w: workstation_id %q must match S<digits>", ErrInvalidEvent, e.WorkstationID)
	case !e.Kind.Valid():
		return fmt.Errorf("%w: unknown event_type", ErrInvalidEvent)
	case e.Confidence < 0 || e.Confidence > 1:
		return fmt.Errorf("%w: confidence %.3f outside [0,1]", ErrInvalidEvent, e.Confidence)
	case e.Confidence < minConfidence:
		return fmt.Errorf("%w: confidence %.3f below threshold (%.2f)", ErrLowConfidence, e.Confidence, minConfidence)
	case e.Count < 0:
		return fmt.Errorf("%w: count must be >= 0", ErrInvalidEvent)
	}
	return nil
}

// ValidWorkerID reports whether id matches W<digits>.
func ValidWorkerID(id string) bool { return workerIDPattern.MatchString(id) }

// ValidWorkstationID reports whether id matches S<digits>.
func ValidWorkstationID(id string) bool { return workstationIDPattern.MatchString(id) }
