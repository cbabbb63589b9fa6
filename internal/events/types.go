package events

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskID() string
}

// Topic constants
const (
	TopicTask     = "task"
	TopicProgress = "progress"
)

// Event type constants. Task lifecycle types use the "task:<transition>" form
// that observers key on.
const (
	EventTypeTaskAdded     = "task:added"
	EventTypeTaskQueued    = "task:queued"
	EventTypeTaskStarted   = "task:started"
	EventTypeTaskCompleted = "task:completed"
	EventTypeTaskFailed    = "task:failed"
	EventTypeTaskCancelled = "task:cancelled"
	EventTypeProgress      = "progress"
)

// IsTerminal reports whether the event type marks the end of a task's life.
func IsTerminal(eventType string) bool {
	switch eventType {
	case EventTypeTaskCompleted, EventTypeTaskFailed, EventTypeTaskCancelled:
		return true
	}
	return false
}
