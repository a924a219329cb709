package model

import "errors"

// Sentinel kinds for event validation.
var (
	ErrInvalidEvent  = errors.New("invalid event")
	ErrLowConfidence = errors.New("confidence below threshold")
)
