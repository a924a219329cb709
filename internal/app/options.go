package service

import (
	"time"

	"github.com/okian/floorwatch/internal/adapters/repository"
	"github.com/okian/floorwatch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore uses store instead of opening the configured driver. The
// service still closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithClock overrides the time source handed to analytics and seeding.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSystemMetricsInterval sets how often runtime metrics are sampled; 0 disables sampling.
func WithSystemMetricsInterval(d time.Duration) Option {
	return func(s *Service) {
		s.systemEvery = d
	}
}
