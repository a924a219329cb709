// Package worker drains the stream queue into the ingestion coordinator.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/floorwatch/internal/adapters/mq/queue"
	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/internal/ingest"
	"github.com/okian/floorwatch/pkg/logger"
	"github.com/okian/floorwatch/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Ingester stores a single event.
type Ingester interface {
	IngestOne(ctx context.Context, ev model.Event) (ingest.Result, error)
}

// Queue defines how workers receive items.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Item
}

// Worker hands queued items to the Ingester one at a time.
type Worker struct {
	queue  Queue
	ingest Ingester
	name   string
	logger logger.Logger
	active *atomic.Int64 // shared with the pool

	stop chan struct{}
	done chan struct{}
}

// NewWorker creates a worker.
func NewWorker(q Queue, ing Ingester, opts ...Option) *Worker {
	w := &Worker{
		queue:  q,
		ingest: ing,
		name:   "worker",
		logger: logger.Nop(),
		active: new(atomic.Int64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes items until the queue is drained and closed, ctx ends or
// the worker is stopped.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case it, ok := <-items:
			if !ok {
				return
			}
			_ = w.process(ctx, it)
		}
	}
}

// Stop asks the worker to return without draining.
func (w *Worker) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

// Done is closed when Run has returned.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, it queue.Item) error { //nolint:gocritic // hugeParam: items travel by value through the channel
	start := time.Now()
	w.active.Add(1)
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ctx = ingest.WithSource(ctx, it.Source)
	res, err := w.ingest.IngestOne(ctx, it.Event)
	if err != nil {
		if errors.Is(err, ingest.ErrStorage) {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "storage")
			w.logger.Error(ctx, "stream event not stored",
				logger.String("event", it.Event.Label()),
				logger.String("source", it.Source),
				logger.Error(err),
			)
		} else {
			w.logger.Warn(ctx, "stream event rejected",
				logger.String("event", it.Event.Label()),
				logger.String("source", it.Source),
				logger.Error(err),
			)
		}
		return fmt.Errorf("ingest %s: %w", it.Event.Label(), err)
	}
	w.logger.Debug(ctx, "stream event ingested",
		logger.String("event", it.Event.Label()),
		logger.String("outcome", res.Outcome.String()),
		logger.Duration("queued", start.Sub(it.Received)),
	)
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	active  atomic.Int64
	logger  logger.Logger

	startOnce sync.Once
	stop      chan struct{}
}

// NewPool creates workerCount workers. Counts below 1 default to twice the CPU count.
func NewPool(workerCount int, q Queue, ing Ingester, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		stop:    make(chan struct{}),
	}
	base := Worker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&base)
	}
	p.logger = base.logger.Named("pool")
	for i := range p.workers {
		wopts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewWorker(q, ing, wopts...)
		p.workers[i].active = &p.active
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker and a gauge updater. Further calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for _, w := range p.workers {
			go w.Run(ctx)
		}
		go p.reportActivity(ctx, time.Second)
		p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
	})
}

func (p *Pool) reportActivity(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-t.C:
			active := int(p.active.Load())
			metrics.UpdateWorkerActiveCount(active)
			metrics.UpdateWorkerIdleCount(len(p.workers) - active)
		}
	}
}

// Shutdown closes the queue and lets the workers drain it. The drain is
// bounded by ctx, capped at 30s: a cancelled ctx stops busy workers at once
// and whatever is still queued is dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			w.Stop()
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker", i))
		}
	}
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, ErrStopped)
	}
	return nil
}
