package scheduler

// Stats summarizes the scheduler. Total always equals the sum of the
// per-status counts.
type Stats struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	Queued        int `json:"queued"`
	Running       int `json:"running"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	Cancelled     int `json:"cancelled"`
	QueueDepth    int `json:"queue_depth"`
	InFlight      int `json:"in_flight"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Count returns the number of tasks in the given status.
func (st Stats) Count(status Status) int {
	switch status {
	case StatusPending:
		return st.Pending
	case StatusQueued:
		return st.Queued
	case StatusRunning:
		return st.Running
	case StatusCompleted:
		return st.Completed
	case StatusFailed:
		return st.Failed
	case StatusCancelled:
		return st.Cancelled
	}
	return 0
}

// GetTask returns a snapshot of the task with the given ID.
func (s *Scheduler) GetTask(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.reg.get(id)
	if !ok {
		return Task{}, false
	}
	return rec.snapshot(), true
}

// GetAllTasks returns snapshots of every task in submission order.
func (s *Scheduler) GetAllTasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]Task, 0, s.reg.len())
	s.reg.each(func(rec *record) {
		tasks = append(tasks, rec.snapshot())
	})
	return tasks
}

// GetTasksByStatus returns snapshots of the tasks in the given status, in
// submission order.
func (s *Scheduler) GetTasksByStatus(status Status) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []Task
	s.reg.each(func(rec *record) {
		if rec.task.Status == status {
			tasks = append(tasks, rec.snapshot())
		}
	})
	return tasks
}

// QueuedIDs returns the ready queue from head to tail.
func (s *Scheduler) QueuedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.ids()
}

// Stats returns per-status counts plus queue and slot usage.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats()
}

// stats computes Stats. Caller must hold s.mu.
func (s *Scheduler) stats() Stats {
	st := Stats{
		QueueDepth:    s.queue.len(),
		InFlight:      len(s.inflight),
		MaxConcurrent: s.maxConcurrent,
	}
	s.reg.each(func(rec *record) {
		st.Total++
		switch rec.task.Status {
		case StatusPending:
			st.Pending++
		case StatusQueued:
			st.Queued++
		case StatusRunning:
			st.Running++
		case StatusCompleted:
			st.Completed++
		case StatusFailed:
			st.Failed++
		case StatusCancelled:
			st.Cancelled++
		}
	})
	return st
}
