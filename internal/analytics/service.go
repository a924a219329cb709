// Package analytics reads events from the store and feeds them to the
// domain aggregators. Nothing is cached; every report re-reads the store.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/floorwatch/internal/adapters/repository"
	"github.com/okian/floorwatch/internal/domain/drift"
	"github.com/okian/floorwatch/internal/domain/heatmap"
	"github.com/okian/floorwatch/internal/domain/kpi"
	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/pkg/logger"
	"github.com/okian/floorwatch/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/okian/floorwatch/internal/analytics"

// Service computes productivity reports. Safe for concurrent use.
type Service struct {
	store       repository.Store
	now         func() time.Time
	queryLimit  int
	drift       drift.Thresholds
	heatmapSpan time.Duration
	peakAbove   float64
	logger      logger.Logger
	tracer      trace.Tracer
}

// New returns a Service reading from store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		now:         time.Now,
		queryLimit:  DefaultQueryLimit,
		drift:       drift.DefaultThresholds(),
		heatmapSpan: heatmap.DefaultSpan,
		peakAbove:   heatmap.DefaultPeakAbove,
		logger:      logger.Nop(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workers returns metrics for one worker, or for every worker when workerID
// is empty. An unknown workerID yields an empty slice.
func (s *Service) Workers(ctx context.Context, workerID string, w model.Window) (out []kpi.WorkerMetrics, err error) {
	ctx, done := s.begin(ctx, "workers", attribute.String("worker_id", workerID))
	defer func() { done(err) }()

	workers, err := s.workers(ctx, workerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out = make([]kpi.WorkerMetrics, 0, len(workers))
	for _, wk := range workers {
		events, err := s.store.QueryEvents(ctx, repository.EventFilter{WorkerID: wk.ID, Window: w}, s.queryLimit)
		if err != nil {
			return nil, fmt.Errorf("query events of %s: %w", wk.ID, err)
		}
		out = append(out, kpi.ForWorker(wk, events, w, now))
	}
	return out, nil
}

// Workstations returns metrics for one workstation, or all when stationID is empty.
func (s *Service) Workstations(ctx context.Context, stationID string, w model.Window) (out []kpi.WorkstationMetrics, err error) {
	ctx, done := s.begin(ctx, "workstations", attribute.String("workstation_id", stationID))
	defer func() { done(err) }()

	stations, err := s.workstations(ctx, stationID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out = make([]kpi.WorkstationMetrics, 0, len(stations))
	for _, ws := range stations {
		events, err := s.store.QueryEvents(ctx, repository.EventFilter{WorkstationID: ws.ID, Window: w}, s.queryLimit)
		if err != nil {
			return nil, fmt.Errorf("query events of %s: %w", ws.ID, err)
		}
		out = append(out, kpi.ForWorkstation(ws, events, w, now))
	}
	return out, nil
}

// Factory rolls every worker and workstation up to floor level.
func (s *Service) Factory(ctx context.Context, w model.Window) (f kpi.FactoryMetrics, err error) {
	ctx, done := s.begin(ctx, "factory")
	defer func() { done(err) }()

	workers, err := s.Workers(ctx, "", w)
	if err != nil {
		return kpi.FactoryMetrics{}, err
	}
	stations, err := s.Workstations(ctx, "", w)
	if err != nil {
		return kpi.FactoryMetrics{}, err
	}
	return kpi.Factory(workers, stations, w), nil
}

// ModelHealth samples the newest events system-wide and classifies their
// mean confidence. The result is also exported as gauges.
func (s *Service) ModelHealth(ctx context.Context) (r drift.Report, err error) {
	ctx, done := s.begin(ctx, "model_health")
	defer func() { done(err) }()

	events, err := s.store.QueryEvents(ctx, repository.EventFilter{}, s.drift.SampleSize)
	if err != nil {
		return drift.Report{}, fmt.Errorf("query recent events: %w", err)
	}
	r = drift.Assess(events, s.drift)
	metrics.UpdateModelHealth(r.Status.String(), r.AvgConfidence, r.Samples)
	if r.Status == drift.Warning {
		s.logger.Warn(ctx, "model confidence degraded",
			logger.Float64("avg_confidence", r.AvgConfidence),
			logger.Int("samples", r.Samples),
		)
	}
	return r, nil
}

// Heatmap buckets the trailing span of events by hour of day.
func (s *Service) Heatmap(ctx context.Context) (h heatmap.Heatmap, err error) {
	ctx, done := s.begin(ctx, "heatmap")
	defer func() { done(err) }()

	now := s.now()
	since := now.Add(-s.heatmapSpan)
	events, err := s.store.QueryEvents(ctx, repository.EventFilter{Window: model.Window{Start: &since}}, 0)
	if err != nil {
		return heatmap.Heatmap{}, fmt.Errorf("query heatmap events: %w", err)
	}
	return heatmap.Build(events, now, s.heatmapSpan, s.peakAbove), nil
}

func (s *Service) workers(ctx context.Context, id string) ([]model.Worker, error) {
	if id == "" {
		all, err := s.store.ListWorkers(ctx)
		if err != nil {
			return nil, fmt.Errorf("list workers: %w", err)
		}
		return all, nil
	}
	w, err := s.store.GetWorker(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get worker: %w", err)
	}
	return []model.Worker{w}, nil
}

func (s *Service) workstations(ctx context.Context, id string) ([]model.Workstation, error) {
	if id == "" {
		all, err := s.store.ListWorkstations(ctx)
		if err != nil {
			return nil, fmt.Errorf("list workstations: %w", err)
		}
		return all, nil
	}
	ws, err := s.store.GetWorkstation(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get workstation: %w", err)
	}
	return []model.Workstation{ws}, nil
}

// begin opens a span for report and returns a func that closes it and
// records latency.
func (s *Service) begin(ctx context.Context, report string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "analytics."+report, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		metrics.RecordAnalyticsLatency(report, float64(time.Since(start).Microseconds())/1000)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordErrorByComponent("analytics", report)
			s.logger.Error(ctx, "report failed", logger.String("report", report), logger.Error(err))
		}
		span.End()
	}
}
