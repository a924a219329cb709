// Package seed loads the demo roster and generates synthetic floor activity.
// Generated events go through the ingestion path like any other sender.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/floorwatch/internal/adapters/repository"
	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/internal/ingest"
	"github.com/okian/floorwatch/pkg/logger"
)

const (
	MinHoursBack = 1
	MaxHoursBack = 168
)

// BatchIngester accepts generated events.
type BatchIngester interface {
	IngestBatch(ctx context.Context, events []model.Event) ingest.BatchResult
}

// Result counts what a seeding run created.
type Result struct {
	WorkersCreated      int
	WorkstationsCreated int
	EventsCreated       int
	Duplicates          int
	Errors              int
}

// Seeder populates a store with the roster and generated events.
type Seeder struct {
	store  repository.Store
	ingest BatchIngester
	roster Roster
	now    func() time.Time
	logger logger.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithClock sets the time the generated history ends at.
func WithClock(now func() time.Time) Option {
	return func(s *Seeder) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand sets the random source, for reproducible runs.
func WithRand(rng *rand.Rand) Option {
	return func(s *Seeder) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithRoster replaces the embedded roster.
func WithRoster(r Roster) Option {
	return func(s *Seeder) {
		if len(r.Workers) > 0 && len(r.Workstations) > 0 {
			s.roster = r
		}
	}
}

// WithLogger sets the seeder logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Seeder) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Seeder using the embedded roster unless WithRoster is given.
func New(store repository.Store, ing BatchIngester, opts ...Option) (*Seeder, error) {
	roster, err := DefaultRoster()
	if err != nil {
		return nil, err
	}
	s := &Seeder{
		store:  store,
		ingest: ing,
		roster: roster,
		now:    time.Now,
		logger: logger.Nop(),
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Roster returns the reference data the seeder writes.
func (s *Seeder) Roster() Roster { return s.roster }

// SeedRoster upserts the roster. Existing rows are left alone.
func (s *Seeder) SeedRoster(ctx context.Context) (workers, stations int, err error) {
	for _, w := range s.roster.Workers {
		created, err := s.store.UpsertWorker(ctx, w)
		if err != nil {
			return workers, stations, fmt.Errorf("upsert worker %s: %w", w.ID, err)
		}
		if created {
			workers++
		}
	}
	for _, ws := range s.roster.Workstations {
		created, err := s.store.UpsertWorkstation(ctx, ws)
		if err != nil {
			return workers, stations, fmt.Errorf("upsert workstation %s: %w", ws.ID, err)
		}
		if created {
			stations++
		}
	}
	return workers, stations, nil
}

// Seed writes the roster and hoursBack hours of random activity. With
// clearExisting every event and reference row is removed first.
func (s *Seeder) Seed(ctx context.Context, clearExisting bool, hoursBack int) (Result, error) {
	if hoursBack < MinHoursBack || hoursBack > MaxHoursBack {
		return Result{}, fmt.Errorf("%w: got %d", ErrHoursBack, hoursBack)
	}
	if clearExisting {
		if err := s.store.ClearAll(ctx); err != nil {
			return Result{}, fmt.Errorf("clear all: %w", err)
		}
	}
	var (
		res Result
		err error
	)
	res.WorkersCreated, res.WorkstationsCreated, err = s.SeedRoster(ctx)
	if err != nil {
		return res, err
	}

	s.mu.Lock()
	events := Synthetic(s.rng, s.roster, s.now().UTC().Truncate(time.Second), hoursBack)
	s.mu.Unlock()

	s.apply(ctx, &res, events)
	s.logger.Info(ctx, "seeded",
		logger.Int("hours_back", hoursBack),
		logger.Bool("cleared", clearExisting),
		logger.Int("events_created", res.EventsCreated),
	)
	return res, nil
}

// AdminSeed writes the roster and a shift-realistic 24 hours of activity.
// With clearExisting only events are removed first; reference data stays.
func (s *Seeder) AdminSeed(ctx context.Context, clearExisting bool) (Result, error) {
	if clearExisting {
		if _, err := s.store.ClearEvents(ctx); err != nil {
			return Result{}, fmt.Errorf("clear events: %w", err)
		}
	}
	var (
		res Result
		err error
	)
	res.WorkersCreated, res.WorkstationsCreated, err = s.SeedRoster(ctx)
	if err != nil {
		return res, err
	}

	s.mu.Lock()
	events := ShiftDay(s.rng, s.roster, s.now().UTC().Truncate(time.Second))
	s.mu.Unlock()

	s.apply(ctx, &res, events)
	s.logger.Info(ctx, "admin seed completed",
		logger.Bool("cleared", clearExisting),
		logger.Int("events_created", res.EventsCreated),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("errors", res.Errors),
	)
	return res, nil
}

func (s *Seeder) apply(ctx context.Context, res *Result, events []model.Event) {
	br := s.ingest.IngestBatch(ingest.WithSource(ctx, ingest.SourceSeed), events)
	res.EventsCreated = br.SuccessCount
	res.Duplicates = br.DuplicateCount
	res.Errors = br.ErrorCount
	if br.ErrorCount > 0 {
		s.logger.Warn(ctx, "seed events rejected", logger.Int("count", br.ErrorCount), logger.String("first", br.Errors[0]))
	}
}
