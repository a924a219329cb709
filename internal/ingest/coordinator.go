// Package ingest validates inbound events and stores each logical event once.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/floorwatch/internal/adapters/repository"
	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/pkg/logger"
	"github.com/okian/floorwatch/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/okian/floorwatch/internal/ingest"

// Outcome is the non-error result of ingesting one event.
type Outcome uint8

const (
	// Created means the event was stored for the first time.
	Created Outcome = iota + 1
	// Duplicate means an event with the same dedup key already existed.
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Duplicate:
		return "duplicate"
	}
	return "unknown"
}

// Result of IngestOne. Event is the stored row: the new one for Created,
// the existing one for Duplicate.
type Result struct {
	Outcome Outcome
	Event   model.Event
}

// BatchResult summarizes IngestBatch. SuccessCount + DuplicateCount +
// ErrorCount always equals the number of submitted items.
type BatchResult struct {
	SuccessCount   int
	DuplicateCount int
	ErrorCount     int
	Errors         []string
}

// Item is one batch entry. Items with Err set were rejected before reaching
// the coordinator, e.g. undecodable payloads; Label names them in the error.
type Item struct {
	Event model.Event
	Label string
	Err   error
}

// AddError records a failed item.
func (b *BatchResult) AddError(msg string) {
	b.ErrorCount++
	b.Errors = append(b.Errors, msg)
}

// Total returns the number of items accounted for.
func (b BatchResult) Total() int {
	return b.SuccessCount + b.DuplicateCount + b.ErrorCount
}

// Coordinator is safe for concurrent use. It holds no event state of its own;
// the store's unique index arbitrates concurrent inserts of the same key.
type Coordinator struct {
	store         repository.Store
	minConfidence float64
	logger        logger.Logger
	tracer        trace.Tracer
}

// New returns a Coordinator writing to store.
func New(store repository.Store, opts ...Option) *Coordinator {
	c := &Coordinator{store: store}
	defaults(c)
	c.tracer = otel.Tracer(tracerName)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MinConfidence returns the configured acceptance threshold.
func (c *Coordinator) MinConfidence() float64 { return c.minConfidence }

// IngestOne validates ev, checks its references and stores it unless an event
// with the same dedup key exists. The returned error is a *ValidationError,
// *NotFoundError or *StorageError, or the context error.
func (c *Coordinator) IngestOne(ctx context.Context, ev model.Event) (Result, error) {
	src := SourceFrom(ctx)
	ctx, span := c.tracer.Start(ctx, "ingest.one", trace.WithAttributes(
		attribute.String("worker_id", ev.WorkerID),
		attribute.String("workstation_id", ev.WorkstationID),
		attribute.String("kind", ev.Kind.String()),
		attribute.String("source", src),
	))
	defer span.End()

	start := time.Now()
	res, err := c.ingest(ctx, ev)
	metrics.RecordIngestLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		metrics.RecordEventRejected(src, reason(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrStorage) {
			metrics.RecordErrorByComponent("ingest", "storage")
			c.logger.Error(ctx, "event ingestion failed", logger.String("event", ev.Label()), logger.Error(err))
		} else {
			c.logger.Debug(ctx, "event rejected", logger.String("event", ev.Label()), logger.Error(err))
		}
		return Result{}, err
	}

	span.SetAttributes(attribute.String("outcome", res.Outcome.String()), attribute.Int64("event_id", res.Event.ID))
	switch res.Outcome {
	case Created:
		metrics.RecordEventIngested(src)
	case Duplicate:
		metrics.RecordEventDuplicate(src)
		c.logger.Debug(ctx, "duplicate event ignored", logger.String("event", ev.Label()), logger.Int64("existing_id", res.Event.ID))
	}
	return res, nil
}

func (c *Coordinator) ingest(ctx context.Context, ev model.Event) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	ev = ev.Normalize()
	if err := ev.Validate(c.minConfidence); err != nil {
		return Result{}, &ValidationError{Err: err}
	}

	if _, err := c.store.GetWorker(ctx, ev.WorkerID); err != nil {
		return Result{}, c.lookupErr("worker", ev.WorkerID, err)
	}
	if _, err := c.store.GetWorkstation(ctx, ev.WorkstationID); err != nil {
		return Result{}, c.lookupErr("workstation", ev.WorkstationID, err)
	}

	existing, err := c.store.FindEventByKey(ctx, ev.Key())
	switch {
	case err == nil:
		return Result{Outcome: Duplicate, Event: existing}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return Result{}, storageErr("find event", err)
	}

	ins, err := c.store.InsertEvent(ctx, ev)
	if err != nil {
		return Result{}, storageErr("insert event", err)
	}
	switch ins.Status {
	case repository.Inserted:
		return Result{Outcome: Created, Event: ins.Event}, nil
	case repository.Conflict:
		// Another writer stored the key between our lookup and insert.
		winner, err := c.store.FindEventByKey(ctx, ev.Key())
		if err != nil {
			return Result{}, storageErr("reread conflicting event", err)
		}
		return Result{Outcome: Duplicate, Event: winner}, nil
	}
	return Result{}, &StorageError{Op: "insert event", Err: fmt.Errorf("unexpected insert status %d", ins.Status)}
}

func (c *Coordinator) lookupErr(entity, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return storageErr("get "+entity, err)
}

// storageErr wraps err as a StorageError unless it is a context error, so
// cancellation is reported as such and not as a storage fault.
func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	}
	return &StorageError{Op: op, Err: err}
}

// IngestBatch ingests events one by one. A failing event never affects the
// others. If ctx ends mid-batch the remaining events are reported as errors
// carrying the context error, so the counts always add up to len(events).
func (c *Coordinator) IngestBatch(ctx context.Context, events []model.Event) BatchResult {
	items := make([]Item, len(events))
	for i, ev := range events {
		items[i] = Item{Event: ev}
	}
	return c.IngestItems(ctx, items)
}

// IngestItems is IngestBatch for entries that may already carry a rejection.
// Errors are reported in input order, pre-rejected items included.
func (c *Coordinator) IngestItems(ctx context.Context, items []Item) BatchResult {
	ctx, span := c.tracer.Start(ctx, "ingest.batch", trace.WithAttributes(
		attribute.Int("size", len(items)),
		attribute.String("source", SourceFrom(ctx)),
	))
	defer span.End()
	metrics.RecordBatchSize(len(items))

	var out BatchResult
	for i, it := range items {
		if it.Err != nil {
			out.AddError(fmt.Sprintf("%s: %v", it.name(i), it.Err))
			continue
		}
		if err := ctx.Err(); err != nil {
			for j, rest := range items[i:] {
				cause := err
				if rest.Err != nil {
					cause = rest.Err
				}
				out.AddError(fmt.Sprintf("%s: %v", rest.name(i+j), cause))
			}
			c.logger.Warn(ctx, "batch interrupted", logger.Int("remaining", len(items)-i), logger.Error(err))
			break
		}
		res, err := c.IngestOne(ctx, it.Event)
		if err != nil {
			out.AddError(fmt.Sprintf("%s: %v", it.name(i), err))
			continue
		}
		switch res.Outcome {
		case Created:
			out.SuccessCount++
		case Duplicate:
			out.DuplicateCount++
		}
	}

	span.SetAttributes(
		attribute.Int("success", out.SuccessCount),
		attribute.Int("duplicate", out.DuplicateCount),
		attribute.Int("error", out.ErrorCount),
	)
	c.logger.Info(ctx, "batch ingested",
		logger.Int("size", len(items)),
		logger.Int("success", out.SuccessCount),
		logger.Int("duplicate", out.DuplicateCount),
		logger.Int("error", out.ErrorCount),
	)
	return out
}

func (it Item) name(index int) string {
	switch {
	case it.Label != "":
		return it.Label
	case it.Err == nil:
		return it.Event.Label()
	default:
		return fmt.Sprintf("item %d", index)
	}
}
