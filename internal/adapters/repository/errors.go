package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrClosed       = errors.New("store closed")
	ErrPathRequired = errors.New("storage path is required")
	ErrOutOfRange   = errors.New("timestamp out of range")
)
