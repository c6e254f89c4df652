package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunRecord is one completed provisioning run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Family     string
	Profile    string
	DryRun     bool
	Results    []PackageResult
}

// PackageResult is the outcome of a single package within a run.
type PackageResult struct {
	Name    string
	Source  string
	Outcome string
}

// Config holds run store configuration.
type Config struct {
	Path string
}

// RunStore records provisioning runs in SQLite.
type RunStore struct {
	db   *sql.DB
	path string
}

// NewRunStore creates a new run store instance.
func NewRunStore(cfg Config) (*RunStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &RunStore{path: cfg.Path}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *RunStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer is enough for run recording.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *RunStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// RecordRun writes a run and its package results in one transaction.
func (s *RunStore) RecordRun(ctx context.Context, rec RunRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	var installed, failed, skipped int
	for _, r := range rec.Results {
		switch r.Outcome {
		case "installed":
			installed++
		case "failed":
			failed++
		case "skipped":
			skipped++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, family, profile, dry_run, installed, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.UTC(), rec.FinishedAt.UTC(), rec.Family, rec.Profile,
		rec.DryRun, installed, failed, skipped)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO package_results (run_id, position, name, source, outcome)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range rec.Results {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, r.Name, r.Source, r.Outcome); err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns recorded runs, most recent first, without their
// package results.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, family, profile, dry_run
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &rec.Family, &rec.Profile, &rec.DryRun); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// GetRun returns one run with its package results.
func (s *RunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var rec RunRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, family, profile, dry_run
		FROM runs WHERE id = ?`, id).
		Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &rec.Family, &rec.Profile, &rec.DryRun)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, source, outcome
		FROM package_results WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var r PackageResult
		if err := rows.Scan(&r.Name, &r.Source, &r.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Results = append(rec.Results, r)
	}
	return &rec, rows.Err()
}
