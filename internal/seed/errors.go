package seed

import "errors"

var (
	ErrInvalidRoster = errors.New("invalid roster")
	ErrHoursBack     = errors.New("hours_back must be between 1 and 168")
)
