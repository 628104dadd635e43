// Package store keeps run history and a per-file record cache in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/a3tai/pdf-eval-reader/internal/evals"
	"github.com/a3tai/pdf-eval-reader/internal/pdf"
	"github.com/a3tai/pdf-eval-reader/internal/rating"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	directory   TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	documents   INTEGER NOT NULL DEFAULT 0,
	top1        REAL,
	top2        REAL,
	mean        REAL
);

CREATE TABLE IF NOT EXISTS documents (
	path     TEXT NOT NULL,
	backend  TEXT NOT NULL,
	size     INTEGER NOT NULL,
	mod_time INTEGER NOT NULL,
	record   TEXT NOT NULL,
	run_id   TEXT REFERENCES runs(id) ON DELETE SET NULL,
	PRIMARY KEY (path, backend)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// ErrRunNotFound is returned by FinishRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Run is one batch run as recorded in the database.
type Run struct {
	ID         uuid.UUID       `json:"id"`
	Directory  string          `json:"directory"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Documents  int             `json:"documents"`
	Summary    *rating.Summary `json:"summary,omitempty"`
}

// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	runID  uuid.UUID
	hasRun bool
}

// Open opens or creates the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir store: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}
	logger.Debug("store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the record backend extracted from file, provided the file's
// size and modification time are unchanged since it was saved.
func (s *Store) Lookup(ctx context.Context, backend pdf.Backend, file pdf.FileInfo) (evals.Record, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM documents WHERE path = ? AND backend = ? AND size = ? AND mod_time = ?`,
		file.Path, string(backend), file.Size, file.ModTime.UnixNano(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return evals.Record{}, false, nil
	}
	if err != nil {
		return evals.Record{}, false, fmt.Errorf("lookup %s: %w", file.Path, err)
	}

	var record evals.Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return evals.Record{}, false, fmt.Errorf("decode cached record of %s: %w", file.Path, err)
	}
	record.Source = file.Path
	return record, true, nil
}

// Save caches the record backend extracted from file, tagged with the current
// run if one is open.
func (s *Store) Save(ctx context.Context, backend pdf.Backend, file pdf.FileInfo, record evals.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	var runID sql.NullString
	s.mu.Lock()
	if s.hasRun {
		runID = sql.NullString{String: s.runID.String(), Valid: true}
	}
	s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (path, backend, size, mod_time, record, run_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, backend) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			record = excluded.record,
			run_id = excluded.run_id
	`, file.Path, string(backend), file.Size, file.ModTime.UnixNano(), string(data), runID)
	if err != nil {
		return fmt.Errorf("save %s: %w", file.Path, err)
	}
	return nil
}

// BeginRun records the start of a run over directory. Records saved until
// FinishRun are tagged with it.
func (s *Store) BeginRun(ctx context.Context, directory string) (uuid.UUID, error) {
	id := uuid.Must(uuid.NewV7())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, directory, started_at) VALUES (?, ?, ?)`,
		id.String(), directory, time.Now().UnixNano(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin run: %w", err)
	}

	s.mu.Lock()
	s.runID, s.hasRun = id, true
	s.mu.Unlock()

	s.logger.Info("run started", "run_id", id.String(), "directory", directory)
	return id, nil
}

// FinishRun stores the outcome of run id. summary may be nil when no
// responses were collected.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, documents int, summary *rating.Summary) error {
	var top1, top2, mean sql.NullFloat64
	if summary != nil {
		top1 = sql.NullFloat64{Float64: summary.Top1Percent, Valid: true}
		top2 = sql.NullFloat64{Float64: summary.Top2Percent, Valid: true}
		mean = sql.NullFloat64{Float64: summary.Mean, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, documents = ?, top1 = ?, top2 = ?, mean = ?
		WHERE id = ?
	`, time.Now().UnixNano(), documents, top1, top2, mean, id.String())
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	s.mu.Lock()
	if s.hasRun && s.runID == id {
		s.hasRun = false
	}
	s.mu.Unlock()

	s.logger.Info("run finished", "run_id", id.String(), "documents", documents)
	return nil
}

// Runs returns the most recent runs first. limit <= 0 returns all of them.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, directory, started_at, finished_at, documents, top1, top2, mean
		FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			id         string
			run        Run
			startedAt  int64
			finishedAt sql.NullInt64
			top1, top2 sql.NullFloat64
			mean       sql.NullFloat64
		)
		if err := rows.Scan(&id, &run.Directory, &startedAt, &finishedAt, &run.Documents, &top1, &top2, &mean); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		run.StartedAt = time.Unix(0, startedAt)
		if finishedAt.Valid {
			t := time.Unix(0, finishedAt.Int64)
			run.FinishedAt = &t
		}
		if top1.Valid && top2.Valid && mean.Valid {
			run.Summary = &rating.Summary{Top1Percent: top1.Float64, Top2Percent: top2.Float64, Mean: mean.Float64}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
