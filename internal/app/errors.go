package service

import "errors"

// Sentinel kinds for service lifecycle failures.
var (
	ErrOpenStore   = errors.New("open store failed")
	ErrSource      = errors.New("stream source failed")
	ErrNotStarted  = errors.New("service not started")
	ErrStartupSeed = errors.New("startup seed failed")
)
