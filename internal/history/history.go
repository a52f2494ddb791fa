// Package history keeps a SQLite ledger of comparison runs.
package history

import (
	"context"
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

	"github.com/banshee-data/pointdiff/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run is one ledger entry. Failed runs are recorded too, with Error set and
// the summary fields left at zero.
type Run struct {
	ID                  uuid.UUID
	StartedAt           time.Time
	Duration            time.Duration
	FirstPath           string
	SecondPath          string
	Threshold           float64
	Renderer            string
	Total               int
	Exceeding           int
	ExceedingPercentage float64
	AgreementScore      float64
	Output              string
	Error               string
}

// Store is the run ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for read-only debugging tools.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	// Note: m is not closed here because that would close the shared DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Version returns the applied schema version.
func (s *Store) Version() (uint, error) {
	var v uint
	var dirty bool
	err := s.db.QueryRow(`SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&v, &dirty)
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, fmt.Errorf("schema version %d is dirty", v)
	}
	return v, nil
}

// Record inserts run.
func (s *Store) Record(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, started_at_ns, duration_ms, first_path, second_path,
			threshold, renderer, total_points, exceeding_points,
			exceeding_percentage, agreement_score, output, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.StartedAt.UnixNano(), run.Duration.Milliseconds(),
		run.FirstPath, run.SecondPath, run.Threshold, run.Renderer,
		run.Total, run.Exceeding, run.ExceedingPercentage, run.AgreementScore,
		run.Output, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	monitoring.Debugf("recorded run %s", run.ID)
	return nil
}

const selectRuns = `
	SELECT run_id, started_at_ns, duration_ms, first_path, second_path,
	       threshold, renderer, total_points, exceeding_points,
	       exceeding_percentage, agreement_score, output, error
	FROM runs`

// List returns up to limit runs, newest first. A non-positive limit returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	q := selectRuns + ` ORDER BY started_at_ns DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE run_id = ?`, id.String())
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r          Run
		id         string
		startedNs  int64
		durationMs int64
	)
	if err := sc.Scan(&id, &startedNs, &durationMs, &r.FirstPath, &r.SecondPath,
		&r.Threshold, &r.Renderer, &r.Total, &r.Exceeding,
		&r.ExceedingPercentage, &r.AgreementScore, &r.Output, &r.Error); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("corrupt run id %q: %w", id, err)
	}
	r.ID = parsed
	r.StartedAt = time.Unix(0, startedNs).UTC()
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return r, nil
}

// migrateLogger implements migrate.Logger interface
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Debugf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
