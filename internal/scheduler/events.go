package scheduler

import (
	"time"

	"github.com/aristath/taskflow/internal/events"
)

// MaxEventsPerTask bounds the task-topic events one submission can produce:
// added, queued, started and a terminal event. A subscriber buffered for
// MaxEventsPerTask times the number of tasks never misses a transition.
const MaxEventsPerTask = 4

// Event is published on events.TopicTask for every task transition.
type Event struct {
	Type      string // One of the events.EventTypeTask* constants
	Task      Task   // Snapshot taken at the moment of the transition
	Timestamp time.Time
}

func (e Event) EventType() string { return e.Type }
func (e Event) TaskID() string    { return e.Task.ID }

// ProgressEvent is published on events.TopicProgress after every terminal
// transition.
type ProgressEvent struct {
	Stats     Stats
	Timestamp time.Time
}

func (e ProgressEvent) EventType() string { return events.EventTypeProgress }
func (e ProgressEvent) TaskID() string    { return "" }
