package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/floorwatch/internal/adapters/repository/migrations"
	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/pkg/metrics"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteStore persists reference data and events in a single SQLite file.
// The dedup key is enforced by the uix_events_dedup unique index.
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	closed atomic.Bool
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies
// embedded migrations.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)",
		filepath.Clean(path), o.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(o.maxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db, now: o.now}, nil
}

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

// observe records latency for op and counts failures other than ErrNotFound.
func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}

func (s *SQLiteStore) check(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

// GetWorker implements Store.
func (s *SQLiteStore) GetWorker(ctx context.Context, id string) (w model.Worker, err error) {
	defer func(start time.Time) { observe("get_worker", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return model.Worker{}, err
	}
	var created int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, shift, department, created_at FROM workers WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.Shift, &w.Department, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Worker{}, fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Worker{}, fmt.Errorf("get worker %s: %w", id, err)
	}
	w.CreatedAt = fromNanos(created)
	return w, nil
}

// GetWorkstation implements Store.
func (s *SQLiteStore) GetWorkstation(ctx context.Context, id string) (ws model.Workstation, err error) {
	defer func(start time.Time) { observe("get_workstation", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return model.Workstation{}, err
	}
	var created int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, location, type, created_at FROM workstations WHERE id = ?`, id,
	).Scan(&ws.ID, &ws.Name, &ws.Location, &ws.Type, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Workstation{}, fmt.Errorf("workstation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Workstation{}, fmt.Errorf("get workstation %s: %w", id, err)
	}
	ws.CreatedAt = fromNanos(created)
	return ws, nil
}

// ListWorkers implements Store.
func (s *SQLiteStore) ListWorkers(ctx context.Context) (out []model.Worker, err error) {
	defer func(start time.Time) { observe("list_workers", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, shift, department, created_at FROM workers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var w model.Worker
		var created int64
		if err = rows.Scan(&w.ID, &w.Name, &w.Shift, &w.Department, &created); err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		w.CreatedAt = fromNanos(created)
		out = append(out, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	return out, nil
}

// ListWorkstations implements Store.
func (s *SQLiteStore) ListWorkstations(ctx context.Context) (out []model.Workstation, err error) {
	defer func(start time.Time) { observe("list_workstations", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, location, type, created_at FROM workstations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list workstations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ws model.Workstation
		var created int64
		if err = rows.Scan(&ws.ID, &ws.Name, &ws.Location, &ws.Type, &created); err != nil {
			return nil, fmt.Errorf("scan workstation: %w", err)
		}
		ws.CreatedAt = fromNanos(created)
		out = append(out, ws)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list workstations: %w", err)
	}
	return out, nil
}

// UpsertWorker implements Store.
func (s *SQLiteStore) UpsertWorker(ctx context.Context, w model.Worker) (created bool, err error) {
	defer func(start time.Time) { observe("upsert_worker", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workers (id, name, shift, department, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		w.ID, w.Name, w.Shift, w.Department, toNanos(s.now()),
	)
	if err != nil {
		return false, fmt.Errorf("upsert worker %s: %w", w.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert worker %s: %w", w.ID, err)
	}
	return n == 1, nil
}

// UpsertWorkstation implements Store.
func (s *SQLiteStore) UpsertWorkstation(ctx context.Context, ws model.Workstation) (created bool, err error) {
	defer func(start time.Time) { observe("upsert_workstation", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workstations (id, name, location, type, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		ws.ID, ws.Name, ws.Location, ws.Type, toNanos(s.now()),
	)
	if err != nil {
		return false, fmt.Errorf("upsert workstation %s: %w", ws.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert workstation %s: %w", ws.ID, err)
	}
	return n == 1, nil
}

const eventColumns = `id, ts, worker_id, workstation_id, kind, confidence, count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (model.Event, error) {
	var (
		ev          model.Event
		ts, created int64
		kind        string
	)
	if err := r.Scan(&ev.ID, &ts, &ev.WorkerID, &ev.WorkstationID, &kind, &ev.Confidence, &ev.Count, &created); err != nil {
		return model.Event{}, err
	}
	k, err := model.ParseKind(kind)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %d: %w", ev.ID, err)
	}
	ev.Kind = k
	ev.Timestamp = fromNanos(ts)
	ev.CreatedAt = fromNanos(created)
	return ev, nil
}

// FindEventByKey implements Store.
func (s *SQLiteStore) FindEventByKey(ctx context.Context, key model.DedupKey) (ev model.Event, err error) {
	defer func(start time.Time) { observe("find_event", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return model.Event{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE ts = ? AND worker_id = ? AND kind = ?`,
		toNanos(key.Timestamp), key.WorkerID, key.Kind.String(),
	)
	ev, err = scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("find event: %w", err)
	}
	return ev, nil
}

// InsertEvent implements Store. Losing a race on the dedup index yields
// Conflict, never an error.
func (s *SQLiteStore) InsertEvent(ctx context.Context, ev model.Event) (res InsertResult, err error) {
	defer func(start time.Time) { observe("insert_event", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return InsertResult{}, err
	}
	if !model.TimestampInRange(ev.Timestamp) {
		return InsertResult{}, fmt.Errorf("insert event %s: %w", ev.Label(), ErrOutOfRange)
	}
	ev = ev.Normalize()
	ev.CreatedAt = s.now().UTC()
	r, err := s.db.ExecContext(ctx,
		`INSERT INTO events (ts, worker_id, workstation_id, kind, confidence, count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(ts, worker_id, kind) DO NOTHING`,
		toNanos(ev.Timestamp), ev.WorkerID, ev.WorkstationID, ev.Kind.String(), ev.Confidence, ev.Count, toNanos(ev.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return InsertResult{Status: Conflict}, nil
		}
		return InsertResult{}, fmt.Errorf("insert event %s: %w", ev.Label(), err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert event %s: %w", ev.Label(), err)
	}
	if n == 0 {
		return InsertResult{Status: Conflict}, nil
	}
	if ev.ID, err = r.LastInsertId(); err != nil {
		return InsertResult{}, fmt.Errorf("insert event %s: %w", ev.Label(), err)
	}
	return InsertResult{Status: Inserted, Event: ev}, nil
}

// QueryEvents implements Store.
func (s *SQLiteStore) QueryEvents(ctx context.Context, f EventFilter, limit int) (out []model.Event, err error) {
	defer func(start time.Time) { observe("query_events", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return nil, err
	}
	var (
		where []string
		args  []any
	)
	if f.WorkerID != "" {
		where = append(where, "worker_id = ?")
		args = append(args, f.WorkerID)
	}
	if f.WorkstationID != "" {
		where = append(where, "workstation_id = ?")
		args = append(args, f.WorkstationID)
	}
	if f.Window.Start != nil {
		where = append(where, "ts >= ?")
		args = append(args, toNanos(*f.Window.Start))
	}
	if f.Window.End != nil {
		where = append(where, "ts < ?")
		args = append(args, toNanos(*f.Window.End))
	}
	q := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY ts DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ev model.Event
		if ev, err = scanEvent(rows); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return out, nil
}

// CountEvents implements Store.
func (s *SQLiteStore) CountEvents(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe("count_events", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return 0, err
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// ClearEvents implements Store.
func (s *SQLiteStore) ClearEvents(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe("clear_events", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM events`)
	if err != nil {
		return 0, fmt.Errorf("clear events: %w", err)
	}
	return res.RowsAffected()
}

// ClearAll implements Store.
func (s *SQLiteStore) ClearAll(ctx context.Context) (err error) {
	defer func(start time.Time) { observe("clear_all", start, err) }(time.Now())
	if err = s.check(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	for _, table := range []string{"events", "workers", "workstations"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Close implements Store. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
