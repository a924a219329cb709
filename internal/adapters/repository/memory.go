package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/floorwatch/internal/domain/model"
)

// MemoryStore is a Store held entirely in process memory. The dedup index is
// checked and written under one lock, which gives it the same arbitration
// guarantee as the SQLite unique index.
type MemoryStore struct {
	mu           sync.RWMutex
	now          func() time.Time
	workers      map[string]model.Worker
	workstations map[string]model.Workstation
	events       []model.Event
	byKey        map[model.DedupKey]int // index into events
	nextID       int64
	closed       bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		now:          o.now,
		workers:      make(map[string]model.Worker),
		workstations: make(map[string]model.Workstation),
		byKey:        make(map[model.DedupKey]int),
	}
}

func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// GetWorker implements Store.
func (s *MemoryStore) GetWorker(ctx context.Context, id string) (model.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Worker{}, err
	}
	w, ok := s.workers[id]
	if !ok {
		return model.Worker{}, fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	return w, nil
}

// GetWorkstation implements Store.
func (s *MemoryStore) GetWorkstation(ctx context.Context, id string) (model.Workstation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Workstation{}, err
	}
	ws, ok := s.workstations[id]
	if !ok {
		return model.Workstation{}, fmt.Errorf("workstation %s: %w", id, ErrNotFound)
	}
	return ws, nil
}

// ListWorkers implements Store.
func (s *MemoryStore) ListWorkers(ctx context.Context) ([]model.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Worker, 0, len(s.workers))
	for _, w := range s.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListWorkstations implements Store.
func (s *MemoryStore) ListWorkstations(ctx context.Context) ([]model.Workstation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Workstation, 0, len(s.workstations))
	for _, ws := range s.workstations {
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertWorker implements Store.
func (s *MemoryStore) UpsertWorker(ctx context.Context, w model.Worker) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if _, ok := s.workers[w.ID]; ok {
		return false, nil
	}
	w.CreatedAt = s.now().UTC()
	s.workers[w.ID] = w
	return true, nil
}

// UpsertWorkstation implements Store.
func (s *MemoryStore) UpsertWorkstation(ctx context.Context, ws model.Workstation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if _, ok := s.workstations[ws.ID]; ok {
		return false, nil
	}
	ws.CreatedAt = s.now().UTC()
	s.workstations[ws.ID] = ws
	return true, nil
}

// FindEventByKey implements Store.
func (s *MemoryStore) FindEventByKey(ctx context.Context, key model.DedupKey) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Event{}, err
	}
	key.Timestamp = key.Timestamp.UTC()
	i, ok := s.byKey[key]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return s.events[i], nil
}

// InsertEvent implements Store.
func (s *MemoryStore) InsertEvent(ctx context.Context, ev model.Event) (InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return InsertResult{}, err
	}
	if !model.TimestampInRange(ev.Timestamp) {
		return InsertResult{}, fmt.Errorf("insert event %s: %w", ev.Label(), ErrOutOfRange)
	}
	ev = ev.Normalize()
	key := ev.Key()
	if _, ok := s.byKey[key]; ok {
		return InsertResult{Status: Conflict}, nil
	}
	s.nextID++
	ev.ID = s.nextID
	ev.CreatedAt = s.now().UTC()
	s.byKey[key] = len(s.events)
	s.events = append(s.events, ev)
	return InsertResult{Status: Inserted, Event: ev}, nil
}

// QueryEvents implements Store.
func (s *MemoryStore) QueryEvents(ctx context.Context, f EventFilter, limit int) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var out []model.Event
	for _, ev := range s.events {
		if f.WorkerID != "" && ev.WorkerID != f.WorkerID {
			continue
		}
		if f.WorkstationID != "" && ev.WorkstationID != f.WorkstationID {
			continue
		}
		if !f.Window.Contains(ev.Timestamp) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountEvents implements Store.
func (s *MemoryStore) CountEvents(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	return int64(len(s.events)), nil
}

// ClearEvents implements Store.
func (s *MemoryStore) ClearEvents(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	n := int64(len(s.events))
	s.events = nil
	s.byKey = make(map[model.DedupKey]int)
	return n, nil
}

// ClearAll implements Store.
func (s *MemoryStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.events = nil
	s.byKey = make(map[model.DedupKey]int)
	s.workers = make(map[string]model.Worker)
	s.workstations = make(map[string]model.Workstation)
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
