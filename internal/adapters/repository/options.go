package repository

import "time"

// Option configures a store.
type Option func(*options)

type options struct {
	now          func() time.Time
	busyTimeout  time.Duration
	maxOpenConns int
}

func defaultOptions() options {
	return options{
		now:          time.Now,
		busyTimeout:  5 * time.Second,
		maxOpenConns: 4,
	}
}

// WithClock sets the clock used to stamp created-at on stored rows.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithMaxOpenConns caps the SQLite connection pool.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}
