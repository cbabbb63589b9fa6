package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-set/v3"
)

// Priority orders admitted tasks in the ready queue.
type Priority int

const (
	PriorityLow      Priority = iota + 1 // Runs after everything else
	PriorityNormal                       // Default when a spec leaves Priority unset
	PriorityHigh                         // Ahead of normal work
	PriorityCritical                     // Ahead of everything
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

func (p Priority) valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// ParsePriority converts a priority name into a Priority. An empty name
// yields PriorityNormal.
func ParsePriority(name string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return PriorityLow, nil
	case "", "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	}
	return 0, fmt.Errorf("unknown priority %q", name)
}

// Status represents the current state of a task.
type Status int

const (
	StatusPending   Status = iota // Waiting for dependencies
	StatusQueued                  // Dependencies satisfied, waiting for a slot
	StatusRunning                 // Work is executing
	StatusCompleted               // Work returned a result
	StatusFailed                  // Work returned an error or panicked
	StatusCancelled               // Cancelled before it started
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusQueued,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// WorkFunc is the asynchronous work a task performs. The scheduler never
// inspects the result; it only records it.
type WorkFunc func(ctx context.Context) (any, error)

// Spec describes a task to submit.
type Spec struct {
	ID        string   // Unique among registered tasks
	Name      string   // Human-readable label, defaults to ID
	Priority  Priority // Zero value means PriorityNormal
	DependsOn []string // IDs that must be COMPLETED before admission
	Work      WorkFunc
}

// Task is a point-in-time snapshot of a registered task.
type Task struct {
	ID           string
	Name         string
	Priority     Priority
	Dependencies []string // Deduplicated and sorted
	Status       Status
	CreatedAt    time.Time
	StartedAt    time.Time // Zero until dispatched
	CompletedAt  time.Time // Zero until terminal
	Result       any       // Set only when Status == StatusCompleted
	Err          error     // Set only when Status == StatusFailed
}

// Duration returns how long the work ran, or zero if it never started or has
// not finished.
func (t Task) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.CompletedAt.IsZero() {
		return 0
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

// ResultAs returns the task result converted to T. The boolean is false when
// the task has not completed or the result is of another type.
func ResultAs[T any](t Task) (T, bool) {
	var zero T
	if t.Status != StatusCompleted {
		return zero, false
	}
	v, ok := t.Result.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// record is the registry's mutable view of a task. All fields except work and
// deps are guarded by the scheduler mutex.
type record struct {
	task Task
	deps *set.Set[string]
	work WorkFunc
}

func newRecord(spec Spec, now time.Time) *record {
	deps := set.From(spec.DependsOn)
	depList := deps.Slice()
	slices.Sort(depList)

	name := spec.Name
	if name == "" {
		name = spec.ID
	}

	return &record{
		task: Task{
			ID:           spec.ID,
			Name:         name,
			Priority:     spec.Priority,
			Dependencies: depList,
			Status:       StatusPending,
			CreatedAt:    now,
		},
		deps: deps,
		work: spec.Work,
	}
}

func (r *record) snapshot() Task {
	cp := r.task
	if r.task.Dependencies != nil {
		cp.Dependencies = append([]string(nil), r.task.Dependencies...)
	}
	return cp
}
