// Package history records executed searches in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/pkg/models"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Status is the outcome of a recorded search.
type Status string

const (
	StatusOK        Status = "ok"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// StatusFor maps a search error to a Status.
func StatusFor(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, errors.ErrCodeSearchTimeout):
		return StatusTimeout
	case errors.Is(err, errors.ErrCodeSearchCancelled):
		return StatusCancelled
	default:
		return StatusError
	}
}

// Entry is one recorded search.
type Entry struct {
	ID           string    `json:"id"`
	Term         string    `json:"term"`
	ScenarioName string    `json:"scenario_name"`
	ScenarioPath string    `json:"scenario_path"`
	ResultCount  int       `json:"result_count"`
	DurationMs   int64     `json:"duration_ms"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewEntry builds an entry for a finished search.
func NewEntry(term string, scenario models.SearchScenario, results int, d time.Duration, err error) Entry {
	e := Entry{
		Term:         term,
		ScenarioName: scenario.Name,
		ScenarioPath: scenario.Path,
		ResultCount:  results,
		DurationMs:   d.Milliseconds(),
		Status:       StatusFor(err),
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs pending migrations.
// Pass ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create history directory").
				WithDetail("path", path)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open history database").
			WithDetail("path", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open history database").
			WithDetail("path", path)
	}

	// A single connection keeps ":memory:" databases shared and avoids
	// "database is locked" between writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode=WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := migrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// migrationVersion extracts 1 from "001_initial.sql".
func migrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("invalid migration filename %q", name)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("invalid migration filename %q: %w", name, err)
	}
	return v, nil
}

// Record stores an entry. Empty ID and CreatedAt are filled in.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, term, scenario_name, scenario_path, result_count, duration_ms, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Term, e.ScenarioName, e.ScenarioPath, e.ResultCount, e.DurationMs, string(e.Status), e.Error,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return e, errors.Wrap(err, errors.ErrCodeInternal, "failed to record search")
	}
	return e, nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, term, scenario_name, scenario_path, result_count, duration_ms, status, error, created_at
		 FROM searches ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to query history")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			status  string
			created string
		)
		if err := rows.Scan(&e.ID, &e.Term, &e.ScenarioName, &e.ScenarioPath, &e.ResultCount, &e.DurationMs, &status, &e.Error, &created); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read history")
		}
		e.Status = Status(status)
		if t, err := time.Parse(timeLayout, created); err == nil {
			e.CreatedAt = t.Local()
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read history")
	}
	return entries, nil
}

// Clear deletes all entries and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM searches")
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to clear history")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
