package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/taskflow/internal/events"
)

// WaitForAll blocks until the ready queue and the in-flight set are both
// empty. Tasks stranded in PENDING do not hold the barrier.
//
// A positive timeout bounds the wait with ErrTimeout; ctx cancellation returns
// ctx.Err(). The barrier only observes: scheduling continues either way.
func (s *Scheduler) WaitForAll(ctx context.Context, timeout time.Duration) error {
	// Subscribe before the first check so no transition slips between them.
	// One slot is enough: a full buffer already guarantees another re-check.
	sub := s.bus.Subscribe(events.TopicTask, 1)
	defer s.bus.Unsubscribe(sub)

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		if s.idle() {
			return nil
		}

		select {
		case _, ok := <-sub:
			if !ok {
				if s.idle() {
					return nil
				}
				return ErrClosed
			}
		case <-deadline:
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// idle reports whether nothing is queued or running.
func (s *Scheduler) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len() == 0 && len(s.inflight) == 0
}
