package journal

import (
	"context"
)

// initSchema creates all required tables if they don't exist. Timestamps are
// stored as Unix nanoseconds.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		plan TEXT NOT NULL,
		max_concurrent INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		stats TEXT
	);

	CREATE TABLE IF NOT EXISTS task_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		event TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		result TEXT NOT NULL DEFAULT '',
		at INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_events_run_task
		ON task_events(run_id, task_id, seq);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
