package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/aristath/taskflow/internal/events"
)

// DefaultMaxConcurrent is used when Config.MaxConcurrent is not positive.
const DefaultMaxConcurrent = 5

// Config configures a Scheduler.
type Config struct {
	MaxConcurrent int              // Max tasks RUNNING at once (default 5)
	Logger        hclog.Logger     // Optional, defaults to a null logger
	Bus           *events.EventBus // Optional, a private bus is created when nil
	Context       context.Context  // Passed to every WorkFunc (default Background)
}

// Scheduler admits tasks, orders them by priority once their dependencies are
// COMPLETED, and runs at most MaxConcurrent of them at a time.
//
// Registry, ready queue and in-flight set are guarded together by mu. Events
// are published while mu is held; EventBus.Publish never blocks.
type Scheduler struct {
	mu       sync.Mutex
	reg      *registry
	queue    readyQueue
	inflight map[string]struct{}

	maxConcurrent int
	ctx           context.Context
	bus           *events.EventBus
	ownsBus       bool
	logger        hclog.Logger
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}

	s := &Scheduler{
		reg:           newRegistry(),
		inflight:      make(map[string]struct{}),
		maxConcurrent: cfg.MaxConcurrent,
		ctx:           cfg.Context,
		bus:           cfg.Bus,
		logger:        cfg.Logger.Named("scheduler"),
	}
	if s.bus == nil {
		s.bus = events.NewEventBus()
		s.ownsBus = true
	}
	return s
}

// Events returns the bus lifecycle events are published on.
func (s *Scheduler) Events() *events.EventBus {
	return s.bus
}

// MaxConcurrent returns the configured concurrency limit.
func (s *Scheduler) MaxConcurrent() int {
	return s.maxConcurrent
}

// Close closes the event bus if the scheduler created it. Running work is not
// interrupted and its transitions are still recorded.
func (s *Scheduler) Close() {
	if s.ownsBus {
		s.bus.Close()
	}
}

// Submit registers a task. It is queued right away when every dependency is
// already COMPLETED, otherwise it stays PENDING until the last one completes.
// Unknown dependency IDs are not an error; they simply never complete.
func (s *Scheduler) Submit(spec Spec) (Task, error) {
	if spec.ID == "" {
		return Task{}, fmt.Errorf("%w: task id is required", ErrInvalidSpec)
	}
	if spec.Work == nil {
		return Task{}, fmt.Errorf("%w: task %q has no work", ErrInvalidSpec, spec.ID)
	}
	if spec.Priority == 0 {
		spec.Priority = PriorityNormal
	}
	if !spec.Priority.valid() {
		return Task{}, fmt.Errorf("%w: task %q has %s", ErrInvalidSpec, spec.ID, spec.Priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := newRecord(spec, time.Now())
	if err := s.reg.add(rec); err != nil {
		return Task{}, err
	}
	s.publish(events.EventTypeTaskAdded, rec)

	if s.reg.satisfied(rec) {
		s.enqueue(rec)
		s.pump()
	} else {
		s.logger.Debug("task waiting on dependencies", "task_id", rec.task.ID, "depends_on", rec.task.Dependencies)
	}

	return rec.snapshot(), nil
}

// SubmitAll submits specs in order. Specs that fail are skipped and their
// errors aggregated; the rest stay registered.
func (s *Scheduler) SubmitAll(specs []Spec) ([]Task, error) {
	var (
		tasks  []Task
		result *multierror.Error
	)
	for _, spec := range specs {
		task, err := s.Submit(spec)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, result.ErrorOrNil()
}

// Cancel moves a PENDING or QUEUED task to CANCELLED. Running work is never
// interrupted, and dependents of a cancelled task stay PENDING.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.reg.get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	switch rec.task.Status {
	case StatusRunning:
		return fmt.Errorf("%w: cannot cancel a running task %q", ErrInvalidState, id)
	case StatusCompleted, StatusFailed, StatusCancelled:
		return fmt.Errorf("%w: task %q is already %s", ErrInvalidState, id, rec.task.Status)
	}

	s.queue.remove(id)
	rec.task.Status = StatusCancelled
	rec.task.CompletedAt = time.Now()
	s.publish(events.EventTypeTaskCancelled, rec)
	s.publishProgress()
	emitGauges(s.queue.len(), len(s.inflight))

	return nil
}

// enqueue moves rec to QUEUED and inserts it into the ready queue.
// Caller must hold s.mu.
func (s *Scheduler) enqueue(rec *record) {
	rec.task.Status = StatusQueued
	s.queue.push(rec)
	s.publish(events.EventTypeTaskQueued, rec)
}

// pump starts queued tasks until the queue is empty or every slot is taken.
// Caller must hold s.mu.
func (s *Scheduler) pump() {
	for s.queue.len() > 0 && len(s.inflight) < s.maxConcurrent {
		rec := s.queue.pop()
		rec.task.Status = StatusRunning
		rec.task.StartedAt = time.Now()
		s.inflight[rec.task.ID] = struct{}{}
		s.publish(events.EventTypeTaskStarted, rec)

		go s.run(rec)
	}
	emitGauges(s.queue.len(), len(s.inflight))
}

// run executes the work outside the lock, then records the outcome.
func (s *Scheduler) run(rec *record) {
	result, err := s.invoke(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(rec, result, err)
}

// invoke calls the work, converting a panic into an error.
func (s *Scheduler) invoke(rec *record) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrWorkPanic, r)
			s.logger.Error("task work panicked", "task_id", rec.task.ID, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	return rec.work(s.ctx)
}

// finish records the terminal transition, releases the slot, admits newly
// unblocked dependents and refills free slots. Caller must hold s.mu.
func (s *Scheduler) finish(rec *record, result any, err error) {
	rec.task.CompletedAt = time.Now()

	if err != nil {
		rec.task.Status = StatusFailed
		rec.task.Err = err
		s.logger.Warn("task failed", "task_id", rec.task.ID, "error", err)
		s.publish(events.EventTypeTaskFailed, rec)
	} else {
		rec.task.Status = StatusCompleted
		rec.task.Result = result
		s.publish(events.EventTypeTaskCompleted, rec)
	}
	emitDuration(rec.task.StartedAt)

	delete(s.inflight, rec.task.ID)

	// Dependents of failed tasks are left PENDING.
	if rec.task.Status == StatusCompleted {
		for _, dep := range s.reg.unblocked(rec.task.ID) {
			s.enqueue(dep)
		}
	}

	s.pump()
	s.publishProgress()
}

// publish emits a lifecycle event carrying a snapshot of rec.
// Caller must hold s.mu.
func (s *Scheduler) publish(eventType string, rec *record) {
	s.logger.Debug("task transition", "event", eventType, "task_id", rec.task.ID, "priority", rec.task.Priority)
	emitTransition(eventType)
	s.bus.Publish(events.TopicTask, Event{
		Type:      eventType,
		Task:      rec.snapshot(),
		Timestamp: time.Now(),
	})
}

// publishProgress emits the current stats. Caller must hold s.mu.
func (s *Scheduler) publishProgress() {
	s.bus.Publish(events.TopicProgress, ProgressEvent{
		Stats:     s.stats(),
		Timestamp: time.Now(),
	})
}
