package scheduler

import "errors"

var (
	// ErrDuplicateID is returned by Submit when the ID is already registered.
	ErrDuplicateID = errors.New("duplicate task id")
	// ErrNotFound is returned for operations on an unknown task ID.
	ErrNotFound = errors.New("task not found")
	// ErrInvalidState is returned when an operation is illegal for the task's status.
	ErrInvalidState = errors.New("invalid task state")
	// ErrInvalidSpec is returned by Submit for a spec that cannot be registered.
	ErrInvalidSpec = errors.New("invalid task spec")
	// ErrTimeout is returned by WaitForAll when its deadline elapses.
	ErrTimeout = errors.New("timed out waiting for tasks")
	// ErrClosed is returned by WaitForAll when the scheduler's event bus closes.
	ErrClosed = errors.New("scheduler closed")
	// ErrWorkPanic wraps a panic recovered from a task's work.
	ErrWorkPanic = errors.New("task work panicked")
)
