// Package history keeps a SQLite record of build batches and the units they
// built.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/specialistvlad/bundlegrid/internal/executor"
)

// Store records batches in a SQLite database.
type Store struct {
	db *sql.DB
}

// BatchRecord is one stored batch.
type BatchRecord struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	UnitCount  int
	FailedUnit int
}

// UnitRecord is one stored unit result of a batch.
type UnitRecord struct {
	BatchID   string
	Unit      string
	Artifacts []string
	Bytes     int
	Duration  time.Duration
	Error     string
}

// Open opens (or creates) the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			unit_count INTEGER NOT NULL,
			failed_count INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS unit_results (
			batch_id TEXT NOT NULL REFERENCES batches(id),
			unit TEXT NOT NULL,
			artifacts TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL,
			error TEXT,
			PRIMARY KEY (batch_id, unit)
		);
		CREATE INDEX IF NOT EXISTS idx_batches_started ON batches(started_at);
	`)
	return err
}

// RecordBatch stores b and its unit results in one transaction.
func (s *Store) RecordBatch(ctx context.Context, b *executor.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, started_at, duration_ns, unit_count, failed_count) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Started.UTC().Format(time.RFC3339Nano), b.Duration.Nanoseconds(), len(b.Results), len(b.Failed()),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO unit_results (batch_id, unit, artifacts, bytes, duration_ns, error) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare unit insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range b.Results {
		var (
			artifacts []string
			size      int
			errText   sql.NullString
		)
		for _, out := range r.Outputs {
			artifacts = append(artifacts, out.ArtifactName)
			size += len(out.Bytes)
		}
		if r.Err != nil {
			errText = sql.NullString{String: r.Err.Error(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, b.ID, r.Unit, joinArtifacts(artifacts), size, r.Duration.Nanoseconds(), errText); err != nil {
			return fmt.Errorf("insert unit %s: %w", r.Unit, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit batches, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ns, unit_count, failed_count FROM batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var out []BatchRecord
	for rows.Next() {
		var (
			rec     BatchRecord
			started string
			dur     int64
		)
		if err := rows.Scan(&rec.ID, &started, &dur, &rec.UnitCount, &rec.FailedUnit); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		rec.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}
		rec.Duration = time.Duration(dur)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Units returns the unit results of one batch in unit name order.
func (s *Store) Units(ctx context.Context, batchID string) ([]UnitRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, unit, artifacts, bytes, duration_ns, error FROM unit_results WHERE batch_id = ? ORDER BY unit`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query unit results: %w", err)
	}
	defer rows.Close()

	var out []UnitRecord
	for rows.Next() {
		var (
			rec       UnitRecord
			artifacts string
			dur       int64
			errText   sql.NullString
		)
		if err := rows.Scan(&rec.BatchID, &rec.Unit, &artifacts, &rec.Bytes, &dur, &errText); err != nil {
			return nil, fmt.Errorf("scan unit result: %w", err)
		}
		rec.Artifacts = splitArtifacts(artifacts)
		rec.Duration = time.Duration(dur)
		rec.Error = errText.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
