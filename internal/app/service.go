// Package service wires the store, ingestion, analytics, seeding and the
// stream sources into one lifecycle that the HTTP API is served from.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/floorwatch/internal/adapters/http/api"
	eventqueue "github.com/okian/floorwatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/floorwatch/internal/adapters/mq/worker"
	"github.com/okian/floorwatch/internal/adapters/repository"
	"github.com/okian/floorwatch/internal/adapters/stream"
	"github.com/okian/floorwatch/internal/analytics"
	"github.com/okian/floorwatch/internal/config"
	"github.com/okian/floorwatch/internal/domain/drift"
	"github.com/okian/floorwatch/internal/ingest"
	"github.com/okian/floorwatch/internal/seed"
	"github.com/okian/floorwatch/pkg/logger"
	"github.com/okian/floorwatch/pkg/metrics"
)

const defaultSystemMetricsInterval = 10 * time.Second

// Service owns every long-lived component of the process.
type Service struct {
	mu sync.RWMutex

	cfg         config.Config
	now         func() time.Time
	systemEvery time.Duration
	logger      logger.Logger

	// Core components
	store     repository.Store
	ingest    *ingest.Coordinator
	analytics *analytics.Service
	seeder    *seed.Seeder

	// Stream ingestion
	queue *eventqueue.InMemoryQueue
	pool  *workerpool.Pool
	kafka *stream.KafkaSource
	mqtt  *stream.MQTTSource

	// State
	started       bool
	storeInjected bool
	stopSources   context.CancelFunc
	stopWorkers   context.CancelFunc
	background    sync.WaitGroup
}

// New constructs a Service for a copy of cfg; nil means defaults.
// Nothing is opened until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:         *cfg,
		now:         time.Now,
		systemEvery: defaultSystemMetricsInterval,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.storeInjected = s.store != nil
	return s
}

// Start opens the store, builds the ingestion and reporting components and
// starts the stream sources. Calling it on a started service is a no-op.
func (s *Service) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting floorwatch service...",
		logger.String("store", s.storeName()),
		logger.String("environment", s.cfg.Environment),
	)

	if s.store == nil {
		if s.store, err = openStore(ctx, s.cfg); err != nil {
			return err
		}
	}
	defer func() {
		if err != nil {
			s.teardown(ctx)
		}
	}()

	s.ingest = ingest.New(s.store,
		ingest.WithMinConfidence(s.cfg.MinConfidence),
		ingest.WithLogger(s.logger),
	)
	s.analytics = analytics.New(s.store,
		analytics.WithClock(s.now),
		analytics.WithQueryLimit(s.cfg.MetricsQueryLimit),
		analytics.WithDriftThresholds(drift.Thresholds{
			SampleSize:   s.cfg.DriftSampleSize,
			WarningBelow: s.cfg.DriftWarningBelow,
			CautionBelow: s.cfg.DriftCautionBelow,
		}),
		analytics.WithHeatmap(time.Duration(s.cfg.HeatmapWindowHours)*time.Hour, s.cfg.HeatmapPeakAbove),
		analytics.WithLogger(s.logger),
	)
	if s.seeder, err = seed.New(s.store, s.ingest,
		seed.WithClock(s.now),
		seed.WithLogger(s.logger),
	); err != nil {
		return err
	}

	if s.cfg.SeedOnStart {
		if err = s.seedOnStart(ctx); err != nil {
			return err
		}
	}

	// Workers outlive the sources so the queue can drain on Stop; neither
	// follows the cancellation of the caller's context.
	base := context.WithoutCancel(ctx)
	workerCtx, stopWorkers := context.WithCancel(base)
	sourceCtx, stopSources := context.WithCancel(base)
	s.stopWorkers, s.stopSources = stopWorkers, stopSources

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.QueueSize))
	s.pool = workerpool.NewPool(s.cfg.WorkerCount, s.queue, s.ingest, workerpool.WithLogger(s.logger))
	s.pool.Start(workerCtx)

	if err = s.startSources(sourceCtx); err != nil {
		return err
	}

	if s.systemEvery > 0 {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			metrics.RunSystemCollector(sourceCtx, s.systemEvery)
		}()
	}

	s.started = true
	s.logger.Info(ctx, "floorwatch service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queue.Capacity()),
		logger.Bool("kafka", s.kafka != nil),
		logger.Bool("mqtt", s.mqtt != nil),
	)
	return nil
}

func (s *Service) storeName() string {
	if s.storeInjected {
		return "injected"
	}
	return s.cfg.StoreDriver
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	case config.DriverSQLite:
		st, err := repository.OpenSQLite(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpenStore, err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrOpenStore, cfg.StoreDriver)
	}
}

// seedOnStart loads the roster and, when the store holds no events yet, a
// shift-realistic last 24 hours.
func (s *Service) seedOnStart(ctx context.Context) error {
	workers, stations, err := s.seeder.SeedRoster(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStartupSeed, err)
	}
	n, err := s.store.CountEvents(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStartupSeed, err)
	}
	if n > 0 {
		s.logger.Info(ctx, "roster seeded; events already present",
			logger.Int("workers", workers),
			logger.Int("workstations", stations),
			logger.Int64("events", n),
		)
		return nil
	}
	res, err := s.seeder.AdminSeed(ctx, false)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStartupSeed, err)
	}
	s.logger.Info(ctx, "startup seed completed", logger.Int("events", res.EventsCreated))
	return nil
}

func (s *Service) startSources(ctx context.Context) error {
	opts := []stream.Option{stream.WithLogger(s.logger)}

	if brokers := s.cfg.Brokers(); len(brokers) > 0 {
		src, err := stream.NewKafkaSource(stream.KafkaConfig{
			Brokers: brokers,
			Topic:   s.cfg.KafkaTopic,
			GroupID: s.cfg.KafkaGroupID,
		}, s.queue, opts...)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSource, err)
		}
		s.kafka = src
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			if err := src.Run(ctx); err != nil {
				s.logger.Error(ctx, "kafka source stopped", logger.Error(err))
			}
		}()
		s.logger.Info(ctx, "kafka source started",
			logger.String("brokers", strings.Join(brokers, ",")),
			logger.String("topic", s.cfg.KafkaTopic),
		)
	}

	if s.cfg.MQTTBroker != "" {
		src, err := stream.NewMQTTSource(stream.MQTTConfig{
			Broker:   s.cfg.MQTTBroker,
			Topic:    s.cfg.MQTTTopic,
			ClientID: s.cfg.MQTTClientID,
		}, s.queue, opts...)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSource, err)
		}
		if err := src.Start(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrSource, err)
		}
		s.mqtt = src
		s.logger.Info(ctx, "mqtt source started",
			logger.String("broker", s.cfg.MQTTBroker),
			logger.String("topic", s.cfg.MQTTTopic),
		)
	}
	return nil
}

// Stop shuts the sources down, drains the queue and closes the store. The
// drain lasts until ctx ends, at most 30s; what is left queued then is lost.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping floorwatch service...")
	err := s.teardown(ctx)
	s.started = false
	s.logger.Info(ctx, "floorwatch service stopped")
	return err
}

// teardown releases whatever Start managed to build, in reverse order.
func (s *Service) teardown(ctx context.Context) error {
	var errs []error

	if s.mqtt != nil {
		s.mqtt.Stop()
		s.mqtt = nil
	}
	if s.stopSources != nil {
		s.stopSources()
		s.stopSources = nil
	}
	s.background.Wait()
	s.kafka = nil

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		s.pool = nil
	}
	if s.stopWorkers != nil {
		s.stopWorkers()
		s.stopWorkers = nil
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
		if !s.storeInjected {
			s.store = nil
		}
	}
	return errors.Join(errs...)
}

// Dependencies returns the components the HTTP API is served from.
func (s *Service) Dependencies() api.Dependencies {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return api.Dependencies{
		Ingest:    s.ingest,
		Analytics: s.analytics,
		Seeder:    s.seeder,
		Store:     s.store,
		Stats:     s,
	}
}

// Enqueue hands an event to the stream workers, as the Kafka and MQTT
// sources do.
func (s *Service) Enqueue(ctx context.Context, it eventqueue.Item) error { //nolint:gocritic // hugeParam: items travel by value through the channel
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}
	return q.Enqueue(ctx, it)
}

// Stats returns service statistics for monitoring and refreshes the
// matching gauges.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started": s.started,
		"store":   s.storeName(),
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len()
	stats["queueLength"] = queueLen
	stats["queueCapacity"] = s.queue.Capacity()
	stats["workerCount"] = s.pool.Size()
	stats["kafka"] = s.kafka != nil
	stats["mqtt"] = s.mqtt != nil
	stats["minConfidence"] = s.ingest.MinConfidence()

	metrics.UpdateQueueSize(queueLen)
	if n, err := s.store.CountEvents(ctx); err == nil {
		stats["storedEvents"] = n
		metrics.UpdateStoredEvents(n)
	} else {
		s.logger.Warn(ctx, "count events failed", logger.Error(err))
	}
	return stats
}
