package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Append records one task transition. The run must exist.
func (s *SQLiteStore) Append(ctx context.Context, entry Entry) error {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_events (run_id, task_id, event, status, priority, error, result, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.RunID, entry.TaskID, entry.Event, entry.Status, entry.Priority, entry.Error, entry.Result, entry.At.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append %s for task %s: %w", entry.Event, entry.TaskID, err)
	}
	return nil
}

// History returns the transitions of a run in the order they were recorded.
// A non-empty taskID narrows the result to that task.
func (s *SQLiteStore) History(ctx context.Context, runID, taskID string) ([]Entry, error) {
	query := `
		SELECT seq, run_id, task_id, event, status, priority, error, result, at
		FROM task_events
		WHERE run_id = ?`
	args := []any{runID}
	if taskID != "" {
		query += ` AND task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY seq`

	return s.queryEntries(ctx, query, args...)
}

// Latest returns the most recent transition of every task in a run, ordered
// by when that transition was recorded.
func (s *SQLiteStore) Latest(ctx context.Context, runID string) ([]Entry, error) {
	return s.queryEntries(ctx, `
		SELECT seq, run_id, task_id, event, status, priority, error, result, at
		FROM task_events
		WHERE seq IN (
			SELECT MAX(seq) FROM task_events WHERE run_id = ? GROUP BY task_id
		)
		ORDER BY seq
	`, runID)
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			at sql.NullInt64
		)
		if err := rows.Scan(&e.Seq, &e.RunID, &e.TaskID, &e.Event, &e.Status, &e.Priority, &e.Error, &e.Result, &at); err != nil {
			return nil, fmt.Errorf("failed to scan task event: %w", err)
		}
		e.At = fromNanos(at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task events: %w", err)
	}
	return entries, nil
}
