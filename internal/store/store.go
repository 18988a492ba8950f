// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store persists analysis runs and their displacement series in SQLite.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/relabs-tech/seismic_analyze/internal/integrate"
	"github.com/relabs-tech/seismic_analyze/internal/pipeline"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// ErrRunClosed is returned when a finished or aborted run is used again.
var ErrRunClosed = errors.New("run already closed")

// Store is a SQLite database of runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps run transactions and bookkeeping ordered.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: that would close db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInfo is one row of the runs table.
type RunInfo struct {
	ID       string
	Source   string
	Epoch    time.Time
	Policy   string
	Status   string
	Error    string
	Readings int
	Emitted  int
	Duration float64
	Final    [3]float64
	Peak     [3]float64
}

// Run collects the displacements of one analysis inside a transaction.
// Other Store methods block until the open Run is finished or aborted.
type Run struct {
	store *Store
	id    string
	tx    *sql.Tx
	stmt  *sql.Stmt
}

// BeginRun records a new running analysis of source and opens the
// transaction its displacements are written in.
func (s *Store) BeginRun(source string, epoch time.Time, policy string) (*Run, error) {
	id := uuid.NewString()
	if _, err := s.db.Exec(
		`INSERT INTO runs (run_id, source, epoch_unix, policy, status) VALUES (?, ?, ?, ?, ?)`,
		id, source, epoch.Unix(), policy, StatusRunning,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin run %s: %w", id, err)
	}
	stmt, err := tx.Prepare(`INSERT INTO displacements (run_id, idx, sx, sy, sz) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("prepare displacement insert: %w", err)
	}
	return &Run{store: s, id: id, tx: tx, stmt: stmt}, nil
}

// ID returns the run's identifier.
func (r *Run) ID() string {
	return r.id
}

// Emit stores one displacement.
func (r *Run) Emit(d integrate.Displacement) error {
	if r.tx == nil {
		return ErrRunClosed
	}
	if _, err := r.stmt.Exec(r.id, d.Index, d.X, d.Y, d.Z); err != nil {
		return fmt.Errorf("insert displacement %d: %w", d.Index, err)
	}
	return nil
}

// Finish stores sum and commits every displacement of the run.
func (r *Run) Finish(sum pipeline.Summary) error {
	if r.tx == nil {
		return ErrRunClosed
	}
	defer r.close()

	if _, err := r.tx.Exec(`
		UPDATE runs SET status = ?, readings = ?, emitted = ?, duration_s = ?,
			final_x = ?, final_y = ?, final_z = ?, peak_x = ?, peak_y = ?, peak_z = ?,
			finished_at = CURRENT_TIMESTAMP
		WHERE run_id = ?`,
		StatusComplete, sum.Readings, sum.Emitted, sum.Duration(),
		sum.Final.X, sum.Final.Y, sum.Final.Z, sum.Peak.X, sum.Peak.Y, sum.Peak.Z,
		r.id,
	); err != nil {
		r.tx.Rollback()
		return fmt.Errorf("update run %s: %w", r.id, err)
	}
	if err := r.tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", r.id, err)
	}
	return nil
}

// Abort discards the run's displacements and marks it failed with cause.
func (r *Run) Abort(cause error) error {
	if r.tx == nil {
		return ErrRunClosed
	}
	err := r.tx.Rollback()
	r.close()
	if err != nil {
		return fmt.Errorf("rollback run %s: %w", r.id, err)
	}

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := r.store.db.Exec(
		`UPDATE runs SET status = ?, error = ?, finished_at = CURRENT_TIMESTAMP WHERE run_id = ?`,
		StatusFailed, msg, r.id,
	); err != nil {
		return fmt.Errorf("mark run %s failed: %w", r.id, err)
	}
	return nil
}

func (r *Run) close() {
	r.stmt.Close()
	r.tx = nil
}

// Runs lists every run, oldest first.
func (s *Store) Runs() ([]RunInfo, error) {
	rows, err := s.db.Query(`
		SELECT run_id, source, epoch_unix, policy, status, COALESCE(error, ''),
			readings, emitted, duration_s,
			final_x, final_y, final_z, peak_x, peak_y, peak_z
		FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var ri RunInfo
		var epoch int64
		if err := rows.Scan(&ri.ID, &ri.Source, &epoch, &ri.Policy, &ri.Status, &ri.Error,
			&ri.Readings, &ri.Emitted, &ri.Duration,
			&ri.Final[0], &ri.Final[1], &ri.Final[2], &ri.Peak[0], &ri.Peak[1], &ri.Peak[2],
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ri.Epoch = time.Unix(epoch, 0).UTC()
		out = append(out, ri)
	}
	return out, rows.Err()
}

// Displacements returns the stored series of run id in index order.
func (s *Store) Displacements(id string) ([]integrate.Displacement, error) {
	rows, err := s.db.Query(`SELECT idx, sx, sy, sz FROM displacements WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("query displacements: %w", err)
	}
	defer rows.Close()

	var out []integrate.Displacement
	for rows.Next() {
		var d integrate.Displacement
		if err := rows.Scan(&d.Index, &d.X, &d.Y, &d.Z); err != nil {
			return nil, fmt.Errorf("scan displacement: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
