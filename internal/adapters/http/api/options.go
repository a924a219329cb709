package api

import (
	"time"

	"github.com/okian/floorwatch/pkg/logger"
)

const (
	defaultName            = "Floorwatch Productivity API"
	defaultEventsLimit     = 1000
	maxEventsLimit         = 10_000
	defaultIngestPerMinute = 100
	defaultBatchPerMinute  = 20
	rootPerMinute          = 60
	healthPerMinute        = 120
)

// Option configures a Server.
type Option func(*Server)

// WithInfo sets what the root and health endpoints report.
func WithInfo(name, version, environment string) Option {
	return func(s *Server) {
		if name != "" {
			s.name = name
		}
		if version != "" {
			s.version = version
		}
		if environment != "" {
			s.environment = environment
		}
	}
}

// WithEventsLimit sets the default and maximum ?limit for GET /api/events.
func WithEventsLimit(def, maxLimit int) Option {
	return func(s *Server) {
		if def > 0 && maxLimit >= def {
			s.eventsDefaultLimit, s.eventsMaxLimit = def, maxLimit
		}
	}
}

// WithRateLimits sets per client IP budgets for single and batch ingestion.
func WithRateLimits(ingestPerMinute, batchPerMinute int) Option {
	return func(s *Server) {
		if ingestPerMinute > 0 {
			s.ingestPerMin = ingestPerMinute
		}
		if batchPerMinute > 0 {
			s.batchPerMin = batchPerMinute
		}
	}
}

// WithTrustedProxyHeaders takes the client address from X-Forwarded-For,
// X-Real-IP or Forwarded. Enable only behind a proxy that sets them, since
// rate limits are keyed on that address.
func WithTrustedProxyHeaders(trust bool) Option {
	return func(s *Server) {
		s.trustProxy = trust
	}
}

// WithCORSOrigins sets the allowed origins; "*" allows any.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithClock overrides the clock used for health timestamps and rate limits.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.Named("http")
		}
	}
}
