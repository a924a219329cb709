package worker

import "errors"

// ErrStopped reports workers stopped before the queue was drained.
var ErrStopped = errors.New("worker stopped")
