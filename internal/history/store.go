// Package history persists a record of every permodule run in SQLite so
// that past results can be listed after the process exits.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("history: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  task        TEXT NOT NULL,
  started_at  INTEGER NOT NULL,
  finished_at INTEGER NOT NULL,
  status      TEXT NOT NULL,
  error       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS branches (
  run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  position  INTEGER NOT NULL,
  name      TEXT NOT NULL,
  label     TEXT NOT NULL,
  module_id TEXT NOT NULL,
  state     TEXT NOT NULL,
  value     TEXT NOT NULL DEFAULT '',
  error     TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, name)
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at DESC);
`

// Run is one recorded execution of a task.
type Run struct {
	ID         string
	Task       string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Error      string
	Branches   []Branch
}

// Branch is the recorded outcome of one branch of a run.
type Branch struct {
	Name     string
	Label    string
	ModuleID string
	State    string
	Value    string
	Error    string
}

// Store persists runs in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens or creates the SQLite database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("history: ping sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Record stores a run and its branches atomically.
func (s *Store) Record(ctx context.Context, run Run) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("history: storage is not configured")
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("history: run id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, task, started_at, finished_at, status, error) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Task, toMillis(run.StartedAt), toMillis(run.FinishedAt), run.Status, run.Error,
	)
	if err != nil {
		return fmt.Errorf("history: insert run %s: %w", run.ID, err)
	}
	for i, b := range run.Branches {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO branches (run_id, position, name, label, module_id, state, value, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, b.Name, b.Label, b.ModuleID, b.State, b.Value, b.Error,
		)
		if err != nil {
			return fmt.Errorf("history: insert branch %s of run %s: %w", b.Name, run.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, task, started_at, finished_at, status, error FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("history: get run %s: %w", id, err)
	}
	if run.Branches, err = s.branches(ctx, run.ID); err != nil {
		return Run{}, err
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, task, started_at, finished_at, status, error FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	for i := range runs {
		if runs[i].Branches, err = s.branches(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run               Run
		started, finished int64
	)
	if err := sc.Scan(&run.ID, &run.Task, &started, &finished, &run.Status, &run.Error); err != nil {
		return Run{}, err
	}
	run.StartedAt = fromMillis(started)
	run.FinishedAt = fromMillis(finished)
	return run, nil
}

func (s *Store) branches(ctx context.Context, runID string) ([]Branch, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT name, label, module_id, state, value, error FROM branches WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: list branches of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.Name, &b.Label, &b.ModuleID, &b.State, &b.Value, &b.Error); err != nil {
			return nil, fmt.Errorf("history: scan branch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
