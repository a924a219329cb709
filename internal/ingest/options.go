package ingest

import (
	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMinConfidence sets the acceptance threshold. Values outside (0, 1] are ignored.
func WithMinConfidence(v float64) Option {
	return func(c *Coordinator) {
		if v > 0 && v <= 1 {
			c.minConfidence = v
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used for ingestion spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) {
		if t != nil {
			c.tracer = t
		}
	}
}

func defaults(c *Coordinator) {
	c.minConfidence = model.DefaultMinConfidence
	c.logger = logger.Nop()
}
