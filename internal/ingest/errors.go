package ingest

import (
	"errors"
	"fmt"
)

// Sentinel kinds for ingestion failures. Every error returned by the
// Coordinator matches exactly one of them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("referenced entity not found")
	ErrStorage    = errors.New("storage failure")
)

// ValidationError reports an event that failed boundary rules.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

// Unwrap exposes both the kind sentinel and the model error.
func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Err} }

// NotFoundError reports a worker or workstation that has not been seeded.
type NotFoundError struct {
	Entity string // "worker" or "workstation"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found, seed data first", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StorageError wraps a store fault.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// reason maps an error to the label used for rejected-event metrics.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStorage):
		return "storage"
	}
	return "cancelled"
}
