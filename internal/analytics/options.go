package analytics

import (
	"time"

	"github.com/okian/floorwatch/internal/domain/drift"
	"github.com/okian/floorwatch/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// DefaultQueryLimit caps the events read per subject for a metrics report.
const DefaultQueryLimit = 10000

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for open window ends and the heatmap span.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithQueryLimit caps events read per subject. Values <= 0 are ignored.
func WithQueryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queryLimit = n
		}
	}
}

// WithDriftThresholds sets the model health classification bounds.
func WithDriftThresholds(th drift.Thresholds) Option {
	return func(s *Service) {
		if th.SampleSize > 0 {
			s.drift = th
		}
	}
}

// WithHeatmap sets the trailing span and the peak threshold of the heatmap.
func WithHeatmap(span time.Duration, peakAbove float64) Option {
	return func(s *Service) {
		if span > 0 {
			s.heatmapSpan = span
		}
		if peakAbove >= 0 {
			s.peakAbove = peakAbove
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer used for report spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}
