// Package work provides the units of work tasks run: subprocesses and
// simulated sleeps, plus wrappers for timeouts and named locks.
package work

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/aristath/taskflow/internal/plan"
	"github.com/aristath/taskflow/internal/scheduler"
)

// ErrEmptyCommand is returned by command work built from an empty argv.
var ErrEmptyCommand = errors.New("empty command")

// Command returns work that runs argv in dir. The result is the trimmed
// stdout; a non-zero exit fails the task with stderr in the error.
func Command(pm *ProcessManager, argv []string, dir string, logger hclog.Logger) scheduler.WorkFunc {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	argv = append([]string(nil), argv...)

	return func(ctx context.Context) (any, error) {
		if len(argv) == 0 {
			return nil, ErrEmptyCommand
		}

		cmd := newCommand(ctx, argv[0], argv[1:]...)
		cmd.Dir = dir

		start := time.Now()
		logger.Debug("starting command", "argv", argv, "dir", dir)
		stdout, stderr, err := executeCommand(cmd, pm)
		logger.Debug("command finished", "argv", argv, "duration", time.Since(start), "stderr_bytes", len(stderr), "error", err)
		if err != nil {
			return nil, err
		}
		return string(bytes.TrimSpace(stdout)), nil
	}
}

// Sleep returns work that waits for d and completes with d as the result.
func Sleep(d time.Duration) scheduler.WorkFunc {
	return func(ctx context.Context) (any, error) {
		if err := sleep(ctx, d); err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Fail returns work that waits for d and then fails with msg.
func Fail(d time.Duration, msg string) scheduler.WorkFunc {
	return func(ctx context.Context) (any, error) {
		if err := sleep(ctx, d); err != nil {
			return nil, err
		}
		return nil, errors.New(msg)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithTimeout bounds fn with a deadline. A zero or negative d returns fn as is.
func WithTimeout(d time.Duration, fn scheduler.WorkFunc) scheduler.WorkFunc {
	if d <= 0 {
		return fn
	}
	return func(ctx context.Context) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		result, err := fn(ctx)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s: %w", d, err)
		}
		return result, err
	}
}

// Exclusive holds the named locks from ls while fn runs. Waiting for the
// locks ends with ctx.
func Exclusive(ls *LockSet, names []string, fn scheduler.WorkFunc) scheduler.WorkFunc {
	if ls == nil || len(names) == 0 {
		return fn
	}
	return func(ctx context.Context) (any, error) {
		unlock, err := ls.LockAll(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("waiting for locks %v: %w", names, err)
		}
		defer unlock()
		return fn(ctx)
	}
}

// Env carries what plan tasks need to build their work.
type Env struct {
	Processes *ProcessManager
	Locks     *LockSet
	Logger    hclog.Logger
}

// FromPlan builds the work for one plan task: a command when Run is set,
// otherwise a sleep that optionally fails. Locks and then Timeout are applied
// around it.
func FromPlan(p *plan.Plan, t plan.Task, env Env) scheduler.WorkFunc {
	logger := env.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.With("task_id", t.ID)

	var fn scheduler.WorkFunc
	switch {
	case len(t.Run) > 0:
		fn = Command(env.Processes, t.Run, p.ResolveDir(t), logger)
	case t.Fail != "":
		fn = Fail(t.Sleep, t.Fail)
	default:
		fn = Sleep(t.Sleep)
	}

	// The timeout covers the wait for locks as well as the work.
	fn = Exclusive(env.Locks, t.Locks, fn)
	return WithTimeout(t.Timeout, fn)
}
