package events

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// testEvent is a minimal Event used to exercise the bus in isolation.
type testEvent struct {
	kind string
	id   string
}

func (e testEvent) EventType() string { return e.kind }
func (e testEvent) TaskID() string    { return e.id }

// TestPublishSubscribe verifies basic publish/subscribe functionality.
func TestPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicTask, 10)

	bus.Publish(TopicTask, testEvent{kind: EventTypeTaskStarted, id: "task-1"})

	select {
	case received := <-ch:
		if received.TaskID() != "task-1" {
			t.Errorf("expected task ID 'task-1', got '%s'", received.TaskID())
		}
		if received.EventType() != EventTypeTaskStarted {
			t.Errorf("expected event type '%s', got '%s'", EventTypeTaskStarted, received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

// TestMultipleSubscribers verifies multiple subscribers receive the same event.
func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch1 := bus.Subscribe(TopicTask, 10)
	ch2 := bus.Subscribe(TopicTask, 10)

	bus.Publish(TopicTask, testEvent{kind: EventTypeTaskCompleted, id: "task-2"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.TaskID() != "task-2" {
				t.Errorf("subscriber %d: expected task ID 'task-2', got '%s'", i+1, received.TaskID())
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d: timeout waiting for event", i+1)
		}
	}
}

// TestNonBlockingSend verifies that publishing doesn't block when channels are full.
func TestNonBlockingSend(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicTask, 1)

	done := make(chan bool)
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(TopicTask, testEvent{kind: EventTypeTaskQueued, id: fmt.Sprintf("task-%d", i)})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publisher blocked (expected non-blocking behavior)")
	}

	select {
	case received := <-ch:
		if received.TaskID() != "task-0" {
			t.Errorf("expected first event to be kept, got %q", received.TaskID())
		}
	default:
		t.Error("expected at least one event in buffer")
	}
}

// TestDroppedCountsFullBuffer verifies that every discarded event is counted
// for the subscription that missed it, and that the count survives Close.
func TestDroppedCountsFullBuffer(t *testing.T) {
	bus := NewEventBus()

	small := bus.Subscribe(TopicTask, 2)
	all := bus.SubscribeAll(3)
	roomy := bus.Subscribe(TopicTask, 10)

	for i := 0; i < 10; i++ {
		bus.Publish(TopicTask, testEvent{kind: EventTypeTaskAdded, id: fmt.Sprintf("task-%d", i)})
	}

	if got := bus.Dropped(small); got != 8 {
		t.Errorf("expected 8 drops for a 2-slot buffer, got %d", got)
	}
	if got := bus.Dropped(all); got != 7 {
		t.Errorf("expected 7 drops for a 3-slot SubscribeAll buffer, got %d", got)
	}
	if got := bus.Dropped(roomy); got != 0 {
		t.Errorf("expected no drops for a 10-slot buffer, got %d", got)
	}

	bus.Close()
	if got := bus.Dropped(small); got != 8 {
		t.Errorf("expected drop count to survive Close, got %d", got)
	}

	unknown := make(chan Event)
	if got := bus.Dropped(unknown); got != 0 {
		t.Errorf("expected 0 for an unknown subscription, got %d", got)
	}
}

// TestCloseSignalsSubscribers verifies that closing the bus closes subscriber channels.
func TestCloseSignalsSubscribers(t *testing.T) {
	bus := NewEventBus()

	ch := bus.Subscribe(TopicTask, 10)
	bus.Close()

	received := 0
	for range ch {
		received++
	}

	if received != 0 {
		t.Errorf("expected 0 events after close, got %d", received)
	}
	if !bus.Closed() {
		t.Error("expected bus to report closed")
	}
}

// TestPublishAfterClose verifies publishing after close doesn't panic.
func TestPublishAfterClose(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(TopicTask, 10)

	bus.Close()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("publishing after close caused panic: %v", r)
		}
	}()

	bus.Publish(TopicTask, testEvent{kind: EventTypeTaskStarted, id: "task-1"})

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event after bus was closed")
		}
	default:
	}
}

// TestMultipleTopics verifies topic isolation.
func TestMultipleTopics(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	taskCh := bus.Subscribe(TopicTask, 10)
	progressCh := bus.Subscribe(TopicProgress, 10)

	bus.Publish(TopicTask, testEvent{kind: EventTypeTaskStarted, id: "task-1"})
	bus.Publish(TopicProgress, testEvent{kind: EventTypeProgress})

	select {
	case received := <-taskCh:
		if received.EventType() != EventTypeTaskStarted {
			t.Errorf("task channel: expected task event, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("task channel: timeout waiting for event")
	}

	select {
	case received := <-progressCh:
		if received.EventType() != EventTypeProgress {
			t.Errorf("progress channel: expected progress event, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("progress channel: timeout waiting for event")
	}

	select {
	case <-taskCh:
		t.Error("task channel received unexpected event")
	case <-time.After(10 * time.Millisecond):
	}

	select {
	case <-progressCh:
		t.Error("progress channel received unexpected event")
	case <-time.After(10 * time.Millisecond):
	}
}

// TestSubscribeAll verifies that SubscribeAll receives events from all topics.
func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	allCh := bus.SubscribeAll(20)

	bus.Publish(TopicTask, testEvent{kind: EventTypeTaskStarted, id: "task-1"})
	bus.Publish(TopicProgress, testEvent{kind: EventTypeProgress})

	receivedTypes := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case received := <-allCh:
			receivedTypes[received.EventType()] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for event")
		}
	}

	if !receivedTypes[EventTypeTaskStarted] {
		t.Error("SubscribeAll did not receive task event")
	}
	if !receivedTypes[EventTypeProgress] {
		t.Error("SubscribeAll did not receive progress event")
	}

	select {
	case <-allCh:
		t.Error("received unexpected third event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := NewEventBus()
	defer bus.Close()

	keep := bus.Subscribe(TopicTask, 10)
	drop := bus.Subscribe(TopicTask, 10)
	all := bus.SubscribeAll(10)

	if got := bus.Subscribers(); got != 3 {
		t.Fatalf("expected 3 subscribers, got %d", got)
	}

	bus.Unsubscribe(drop)
	bus.Unsubscribe(all)

	if got := bus.Subscribers(); got != 1 {
		t.Fatalf("expected 1 subscriber after unsubscribe, got %d", got)
	}

	// Removed channels are closed so that range loops terminate.
	if _, ok := <-drop; ok {
		t.Error("expected unsubscribed topic channel to be closed")
	}
	if _, ok := <-all; ok {
		t.Error("expected unsubscribed all-topics channel to be closed")
	}

	bus.Publish(TopicTask, testEvent{kind: EventTypeTaskAdded, id: "task-1"})
	select {
	case ev := <-keep:
		if ev.TaskID() != "task-1" {
			t.Errorf("expected task-1, got %q", ev.TaskID())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("remaining subscriber did not receive event")
	}

	// Unsubscribing twice or after close must not panic.
	bus.Unsubscribe(drop)
	bus.Close()
	bus.Unsubscribe(keep)
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		eventType string
		want      bool
	}{
		{EventTypeTaskAdded, false},
		{EventTypeTaskQueued, false},
		{EventTypeTaskStarted, false},
		{EventTypeTaskCompleted, true},
		{EventTypeTaskFailed, true},
		{EventTypeTaskCancelled, true},
		{EventTypeProgress, false},
	}

	for _, tt := range tests {
		if got := IsTerminal(tt.eventType); got != tt.want {
			t.Errorf("IsTerminal(%q) = %v, want %v", tt.eventType, got, tt.want)
		}
	}
}
