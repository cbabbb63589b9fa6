// Package journal keeps an audit log of task lifecycle transitions in SQLite.
// It is observational only: nothing is ever restored from it.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aristath/taskflow/internal/scheduler"
)

// ErrRunNotFound is returned when a run ID is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// Run is one invocation of a plan.
type Run struct {
	ID            string
	Plan          string // Path of the plan file
	MaxConcurrent int
	StartedAt     time.Time
	FinishedAt    time.Time        // Zero while the run is in progress
	Stats         *scheduler.Stats // Final stats, nil until finished
}

// Finished reports whether FinishRun was recorded for the run.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Entry is one recorded task transition.
type Entry struct {
	Seq      int64 // Monotonic across the journal
	RunID    string
	TaskID   string
	Event    string // events.EventTypeTask* value
	Status   string
	Priority string
	Error    string
	Result   string
	At       time.Time
}

// Store defines the journal persistence interface.
type Store interface {
	CreateRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, runID string, finishedAt time.Time, stats scheduler.Stats) error
	GetRun(ctx context.Context, runID string) (Run, error)
	Runs(ctx context.Context) ([]Run, error)

	Append(ctx context.Context, entry Entry) error
	History(ctx context.Context, runID, taskID string) ([]Entry, error)
	Latest(ctx context.Context, runID string) ([]Entry, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the journal at dbPath, creating parent directories as
// needed. Enables WAL mode, foreign keys, and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory journal. Every store gets its own
// database name so concurrent stores in one process stay isolated.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:journal-%s?mode=memory&cache=shared", uuid.NewString())
	return open(ctx, connStr)
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc.org/sqlite ignores _foreign_keys in the connection string.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func fromNanos(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.Unix(0, n.Int64)
}
