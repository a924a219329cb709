package replay

import "errors"

// Sentinel kinds for replay failures.
var (
	ErrConfig        = errors.New("invalid replay config")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrSubmit        = errors.New("submit failed")
	ErrNotIdempotent = errors.New("replay was not idempotent")
)
