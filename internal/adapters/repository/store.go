// Package repository defines the event store contract and its SQLite and
// in-memory implementations.
package repository

import (
	"context"

	"github.com/okian/floorwatch/internal/domain/model"
)

// InsertStatus is the outcome of InsertEvent.
type InsertStatus uint8

const (
	// Inserted means a new row was written.
	Inserted InsertStatus = iota + 1
	// Conflict means a row with the same dedup key already exists.
	Conflict
)

func (s InsertStatus) String() string {
	switch s {
	case Inserted:
		return "inserted"
	case Conflict:
		return "conflict"
	}
	return "unknown"
}

// InsertResult reports what InsertEvent did. Event carries the stored row
// (id and created-at assigned) when Status is Inserted.
type InsertResult struct {
	Status InsertStatus
	Event  model.Event
}

// EventFilter narrows QueryEvents. Empty ids match everything; the window is
// half-open [Start, End).
type EventFilter struct {
	WorkerID      string
	WorkstationID string
	Window        model.Window
}

// Store is the persistence contract used by ingestion and analytics.
type Store interface {
	GetWorker(ctx context.Context, id string) (model.Worker, error)
	GetWorkstation(ctx context.Context, id string) (model.Workstation, error)
	ListWorkers(ctx context.Context) ([]model.Worker, error)
	ListWorkstations(ctx context.Context) ([]model.Workstation, error)

	// UpsertWorker adds w unless a worker with the same id exists.
	// created reports whether a row was added.
	UpsertWorker(ctx context.Context, w model.Worker) (created bool, err error)
	// UpsertWorkstation adds s unless a workstation with the same id exists.
	UpsertWorkstation(ctx context.Context, s model.Workstation) (created bool, err error)

	// FindEventByKey returns ErrNotFound when no event has the key.
	FindEventByKey(ctx context.Context, key model.DedupKey) (model.Event, error)
	// InsertEvent writes ev, or returns Conflict if its dedup key is taken.
	// A conflict is not an error.
	InsertEvent(ctx context.Context, ev model.Event) (InsertResult, error)
	// QueryEvents returns matching events newest first. limit <= 0 means no limit.
	QueryEvents(ctx context.Context, f EventFilter, limit int) ([]model.Event, error)
	CountEvents(ctx context.Context) (int64, error)

	// ClearEvents removes every event and returns how many were deleted.
	ClearEvents(ctx context.Context) (int64, error)
	// ClearAll removes events, workers and workstations.
	ClearAll(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}
