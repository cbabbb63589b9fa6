package scheduler

import (
	"fmt"

	"github.com/gammazero/toposort"
)

// Cause explains why a dependency will never let its dependent run.
type Cause string

const (
	CauseMissing   Cause = "missing"   // No task with that ID is registered
	CauseFailed    Cause = "failed"    // Dependency ended FAILED
	CauseCancelled Cause = "cancelled" // Dependency was cancelled
	CauseStranded  Cause = "stranded"  // Dependency is itself stranded in PENDING
)

// Blocker is one unsatisfiable dependency of a stranded task.
type Blocker struct {
	ID    string
	Cause Cause
}

// StrandedTask is a PENDING task that can never be admitted under the
// current registry contents.
type StrandedTask struct {
	Task     Task
	Blockers []Blocker
}

// Diagnosis is a read-only report on PENDING tasks.
type Diagnosis struct {
	Stranded []StrandedTask
	Cycle    error // Non-nil when pending tasks depend on each other in a cycle
}

// Healthy reports whether every pending task can still be admitted.
func (d Diagnosis) Healthy() bool {
	return len(d.Stranded) == 0 && d.Cycle == nil
}

// Diagnose reports PENDING tasks that are stranded by missing, failed or
// cancelled dependencies, directly or transitively, and detects dependency
// cycles among pending tasks. Scheduling is not affected: a later submission
// of a missing ID still releases its dependents.
func (s *Scheduler) Diagnose() Diagnosis {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*record
	s.reg.each(func(rec *record) {
		if rec.task.Status == StatusPending {
			pending = append(pending, rec)
		}
	})

	// A pending task can still run if every dependency is queued, running,
	// completed, or a pending task that can itself still run.
	resolvable := make(map[string]bool, len(pending))
	for changed := true; changed; {
		changed = false
		for _, rec := range pending {
			if resolvable[rec.task.ID] {
				continue
			}
			if s.canResolve(rec, resolvable) {
				resolvable[rec.task.ID] = true
				changed = true
			}
		}
	}

	var diag Diagnosis
	for _, rec := range pending {
		if resolvable[rec.task.ID] {
			continue
		}
		diag.Stranded = append(diag.Stranded, StrandedTask{
			Task:     rec.snapshot(),
			Blockers: s.blockers(rec, resolvable),
		})
	}
	diag.Cycle = s.pendingCycle(pending)

	return diag
}

// canResolve is the fixpoint step of Diagnose. Caller must hold s.mu.
func (s *Scheduler) canResolve(rec *record, resolvable map[string]bool) bool {
	for _, depID := range rec.task.Dependencies {
		dep, ok := s.reg.get(depID)
		if !ok {
			return false
		}
		switch dep.task.Status {
		case StatusQueued, StatusRunning, StatusCompleted:
		case StatusPending:
			if !resolvable[depID] {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// blockers lists the dependencies that keep rec stranded. Caller must hold s.mu.
func (s *Scheduler) blockers(rec *record, resolvable map[string]bool) []Blocker {
	var out []Blocker
	for _, depID := range rec.task.Dependencies {
		dep, ok := s.reg.get(depID)
		if !ok {
			out = append(out, Blocker{ID: depID, Cause: CauseMissing})
			continue
		}
		switch dep.task.Status {
		case StatusFailed:
			out = append(out, Blocker{ID: depID, Cause: CauseFailed})
		case StatusCancelled:
			out = append(out, Blocker{ID: depID, Cause: CauseCancelled})
		case StatusPending:
			if !resolvable[depID] {
				out = append(out, Blocker{ID: depID, Cause: CauseStranded})
			}
		}
	}
	return out
}

// pendingCycle runs a topological sort over the edges between pending tasks.
// Caller must hold s.mu.
func (s *Scheduler) pendingCycle(pending []*record) error {
	if len(pending) == 0 {
		return nil
	}

	isPending := make(map[string]bool, len(pending))
	for _, rec := range pending {
		isPending[rec.task.ID] = true
	}

	var edges []toposort.Edge
	for _, rec := range pending {
		linked := false
		for _, depID := range rec.task.Dependencies {
			if depID == rec.task.ID {
				return fmt.Errorf("dependency cycle among pending tasks: task %q depends on itself", depID)
			}
			if isPending[depID] {
				// Edge (depID, taskID) means depID must come before taskID
				edges = append(edges, toposort.Edge{depID, rec.task.ID})
				linked = true
			}
		}
		if !linked {
			edges = append(edges, toposort.Edge{nil, rec.task.ID})
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("dependency cycle among pending tasks: %w", err)
	}
	return nil
}
