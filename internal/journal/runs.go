package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/taskflow/internal/scheduler"
)

// CreateRun records the start of a run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, plan, max_concurrent, started_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.Plan, run.MaxConcurrent, run.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stores the final stats of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, finishedAt time.Time, stats scheduler.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, stats = ? WHERE id = ?
	`, finishedAt.UnixNano(), string(data), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun retrieves one run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, plan, max_concurrent, started_at, finished_at, stats
		FROM runs
		WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// Runs lists every run, newest first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan, max_concurrent, started_at, finished_at, stats
		FROM runs
		ORDER BY started_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run        Run
		startedAt  int64
		finishedAt sql.NullInt64
		stats      sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.Plan, &run.MaxConcurrent, &startedAt, &finishedAt, &stats); err != nil {
		return Run{}, err
	}

	run.StartedAt = time.Unix(0, startedAt)
	run.FinishedAt = fromNanos(finishedAt)
	if stats.Valid && stats.String != "" {
		var st scheduler.Stats
		if err := json.Unmarshal([]byte(stats.String), &st); err != nil {
			return Run{}, fmt.Errorf("failed to decode stats of run %s: %w", run.ID, err)
		}
		run.Stats = &st
	}
	return run, nil
}
