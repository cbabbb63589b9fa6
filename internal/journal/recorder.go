package journal

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/sony/gobreaker"

	"github.com/aristath/taskflow/internal/events"
	"github.com/aristath/taskflow/internal/scheduler"
)

// maxResultLen caps the stored rendering of a task result.
const maxResultLen = 4096

// RetryConfig configures exponential backoff for journal writes.
type RetryConfig struct {
	InitialInterval     time.Duration // Initial retry interval (default 50ms)
	MaxInterval         time.Duration // Maximum retry interval (default 1s)
	MaxElapsedTime      time.Duration // Maximum total retry time per write (default 5s)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     50 * time.Millisecond,
		MaxInterval:         time.Second,
		MaxElapsedTime:      5 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	RunID        string
	BufferSize   int // Subscription buffer; overflow is dropped by the bus and counted in Dropped
	Retry        RetryConfig
	TripAfter    uint32        // Consecutive failed writes that open the breaker (default 5)
	OpenDuration time.Duration // How long the breaker stays open (default 30s)
	Logger       hclog.Logger
}

// Recorder writes every task transition published on a bus into a Store.
// Writes go through a circuit breaker and are retried with backoff; a write
// that still fails is logged and skipped, never failing the run.
type Recorder struct {
	store   Store
	bus     *events.EventBus
	sub     <-chan events.Event
	runID   string
	retry   RetryConfig
	breaker *gobreaker.CircuitBreaker
	logger  hclog.Logger

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64 // Final bus drop count, captured before unsubscribing
}

// NewRecorder subscribes to the task topic right away, so transitions
// published before Run starts are buffered rather than missed.
func NewRecorder(store Store, bus *events.EventBus, cfg RecorderConfig) *Recorder {
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = 5
	}
	if cfg.OpenDuration == 0 {
		cfg.OpenDuration = 30 * time.Second
	}

	logger := cfg.Logger.Named("journal")
	r := &Recorder{
		store:  store,
		bus:    bus,
		sub:    bus.Subscribe(events.TopicTask, cfg.BufferSize),
		runID:  cfg.RunID,
		retry:  cfg.Retry,
		logger: logger,
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "journal",
		MaxRequests: 1,
		Timeout:     cfg.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.TripAfter
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Shutdown is not a store failure.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	return r
}

// Run records events until the bus closes or ctx ends. It returns nil when
// the bus closes, after every buffered event has been handled.
func (r *Recorder) Run(ctx context.Context) error {
	defer func() {
		dropped := r.bus.Dropped(r.sub)
		r.dropped.Store(dropped)
		r.bus.Unsubscribe(r.sub)
		if dropped > 0 {
			r.logger.Warn("journal missed transitions, subscription buffer was full", "dropped", dropped)
		}
	}()

	for {
		select {
		case ev, ok := <-r.sub:
			if !ok {
				return nil
			}
			r.handle(ctx, ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Written returns how many transitions were stored.
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Failed returns how many transitions could not be stored.
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}

// Dropped returns how many transitions never reached the recorder because
// its subscription buffer was full.
func (r *Recorder) Dropped() int64 {
	if n := r.bus.Dropped(r.sub); n > 0 {
		return n
	}
	return r.dropped.Load()
}

func (r *Recorder) handle(ctx context.Context, ev events.Event) {
	se, ok := ev.(scheduler.Event)
	if !ok {
		return
	}

	entry := EntryFromEvent(r.runID, se)
	if err := r.write(ctx, entry); err != nil {
		r.failed.Add(1)
		r.logger.Warn("dropping journal entry", "task_id", entry.TaskID, "event", entry.Event, "error", err)
		return
	}
	r.written.Add(1)
}

// write appends entry through the breaker, retrying transient failures.
func (r *Recorder) write(ctx context.Context, entry Entry) error {
	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, r.store.Append(ctx, entry)
		})
		if err != nil {
			// Open breaker: the store is known bad, don't hammer it.
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.retry.InitialInterval
	policy.MaxInterval = r.retry.MaxInterval
	policy.MaxElapsedTime = r.retry.MaxElapsedTime
	policy.Multiplier = r.retry.Multiplier
	policy.RandomizationFactor = r.retry.RandomizationFactor

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

// EntryFromEvent converts a lifecycle event into a journal entry.
func EntryFromEvent(runID string, ev scheduler.Event) Entry {
	entry := Entry{
		RunID:    runID,
		TaskID:   ev.Task.ID,
		Event:    ev.Type,
		Status:   ev.Task.Status.String(),
		Priority: ev.Task.Priority.String(),
		At:       ev.Timestamp,
	}
	if ev.Task.Err != nil {
		entry.Error = ev.Task.Err.Error()
	}
	if ev.Task.Result != nil {
		entry.Result = truncate(fmt.Sprint(ev.Task.Result), maxResultLen)
	}
	return entry
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
