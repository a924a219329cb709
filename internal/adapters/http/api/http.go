// Package api serves the REST interface over gorilla/mux.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/okian/floorwatch/internal/adapters/repository"
	"github.com/okian/floorwatch/internal/domain/drift"
	"github.com/okian/floorwatch/internal/domain/heatmap"
	"github.com/okian/floorwatch/internal/domain/kpi"
	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/internal/ingest"
	"github.com/okian/floorwatch/internal/seed"
	"github.com/okian/floorwatch/pkg/logger"
	"github.com/okian/floorwatch/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingester stores inbound events.
type Ingester interface {
	IngestOne(ctx context.Context, ev model.Event) (ingest.Result, error)
	IngestItems(ctx context.Context, items []ingest.Item) ingest.BatchResult
}

// Analytics computes the metrics reports.
type Analytics interface {
	Workers(ctx context.Context, workerID string, w model.Window) ([]kpi.WorkerMetrics, error)
	Workstations(ctx context.Context, stationID string, w model.Window) ([]kpi.WorkstationMetrics, error)
	Factory(ctx context.Context, w model.Window) (kpi.FactoryMetrics, error)
	ModelHealth(ctx context.Context) (drift.Report, error)
	Heatmap(ctx context.Context) (heatmap.Heatmap, error)
}

// Seeder loads sample data.
type Seeder interface {
	Seed(ctx context.Context, clearExisting bool, hoursBack int) (seed.Result, error)
	AdminSeed(ctx context.Context, clearExisting bool) (seed.Result, error)
	Roster() seed.Roster
}

// Reader is the read side of the store used by the query endpoints.
type Reader interface {
	QueryEvents(ctx context.Context, f repository.EventFilter, limit int) ([]model.Event, error)
	ListWorkers(ctx context.Context) ([]model.Worker, error)
	ListWorkstations(ctx context.Context) ([]model.Workstation, error)
	Ping(ctx context.Context) error
}

// Dependencies bundles what the handlers call into. Stats may be nil.
type Dependencies struct {
	Ingest    Ingester
	Analytics Analytics
	Seeder    Seeder
	Store     Reader
	Stats     StatsProvider
}

// Server wires HTTP routes for the API.
type Server struct {
	deps Dependencies

	name, version, environment string
	origins                    []string
	eventsDefaultLimit         int
	eventsMaxLimit             int
	ingestPerMin, batchPerMin  int
	trustProxy                 bool

	ingestLimiter *ipLimiter
	batchLimiter  *ipLimiter
	rootLimiter   *ipLimiter
	healthLimiter *ipLimiter

	now    func() time.Time
	logger logger.Logger
}

// NewServer creates a Server over deps.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:               deps,
		name:               defaultName,
		version:            "dev",
		environment:        "development",
		origins:            []string{"*"},
		eventsDefaultLimit: defaultEventsLimit,
		eventsMaxLimit:     maxEventsLimit,
		ingestPerMin:       defaultIngestPerMinute,
		batchPerMin:        defaultBatchPerMinute,
		now:                time.Now,
		logger:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ingestLimiter = newIPLimiter(s.ingestPerMin, s.now)
	s.batchLimiter = newIPLimiter(s.batchPerMin, s.now)
	s.rootLimiter = newIPLimiter(rootPerMinute, s.now)
	s.healthLimiter = newIPLimiter(healthPerMinute, s.now)
	return s
}

// Router returns the bare route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, s.loggingMiddleware)

	r.HandleFunc("/", s.limit(s.rootLimiter, "root", MetricsMiddleware(s.handleRoot, "root"))).Methods(http.MethodGet)
	r.HandleFunc("/health", s.limit(s.healthLimiter, "health", MetricsMiddleware(s.handleHealth, "health"))).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.handleStats, "stats")).Methods(http.MethodGet)

	r.HandleFunc("/api/events", s.limit(s.ingestLimiter, "events", MetricsMiddleware(s.handlePostEvent, "events"))).Methods(http.MethodPost)
	r.HandleFunc("/api/events/batch", s.limit(s.batchLimiter, "events_batch", MetricsMiddleware(s.handlePostBatch, "events_batch"))).Methods(http.MethodPost)
	r.HandleFunc("/api/events", MetricsMiddleware(s.handleGetEvents, "events")).Methods(http.MethodGet)

	r.HandleFunc("/api/metrics/workers", MetricsMiddleware(s.handleWorkerMetrics, "metrics_workers")).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics/workstations", MetricsMiddleware(s.handleWorkstationMetrics, "metrics_workstations")).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics/factory", MetricsMiddleware(s.handleFactoryMetrics, "metrics_factory")).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics/model-health", MetricsMiddleware(s.handleModelHealth, "model_health")).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics/efficiency-heatmap", MetricsMiddleware(s.handleHeatmap, "heatmap")).Methods(http.MethodGet)

	r.HandleFunc("/api/workers", MetricsMiddleware(s.handleListWorkers, "workers")).Methods(http.MethodGet)
	r.HandleFunc("/api/workstations", MetricsMiddleware(s.handleListWorkstations, "workstations")).Methods(http.MethodGet)

	r.HandleFunc("/api/seed", MetricsMiddleware(s.handleSeed, "seed")).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/seed", MetricsMiddleware(s.handleAdminSeed, "admin_seed")).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Code: "method_not_allowed", Message: http.StatusText(http.StatusMethodNotAllowed)})
	})
	return r
}

// Handler returns the router wrapped with CORS, compression and panic
// recovery, and proxy header handling when enabled. Extra routes, e.g. API docs, can be
// attached through register before wrapping.
func (s *Server) Handler(register ...func(*mux.Router)) http.Handler {
	r := s.Router()
	for _, fn := range register {
		fn(r)
	}
	var h http.Handler = r
	h = handlers.CompressHandler(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(s.origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
		handlers.ExposedHeaders([]string{"X-Total-Count", requestIDHeader}),
		handlers.MaxAge(600),
	)(h)
	if s.trustProxy {
		h = handlers.ProxyHeaders(h)
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(h)
}

type recoveryLogger struct{ l logger.Logger }

func (r recoveryLogger) Println(v ...any) {
	metrics.RecordErrorByComponent("http", "panic")
	r.l.Error(context.Background(), "handler panic", logger.Any("panic", v))
}
