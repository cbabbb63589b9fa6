package events

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is used when a subscriber asks for a non-positive buffer.
const DefaultBufferSize = 256

// EventBus is a channel-based pub-sub event bus.
// Supports topic-based subscriptions and SubscribeAll for cross-topic consumption.
// A bus is owned by whoever constructs it; there is no process-wide instance.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[string][]chan Event // topic -> subscriber channels
	allSubs []chan Event            // channels subscribed to all topics
	closed  bool

	// Per-subscription count of events dropped on a full buffer. Entries
	// outlive Close so consumers can read their final count.
	drops map[<-chan Event]*atomic.Int64
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subs:    make(map[string][]chan Event),
		allSubs: make([]chan Event, 0),
		drops:   make(map[<-chan Event]*atomic.Int64),
	}
}

// Subscribe creates a subscription to a specific topic.
// Returns a read-only channel that receives events published to that topic.
// bufSize determines the channel buffer size (defaults to 256 if <= 0).
func (b *EventBus) Subscribe(topic string, bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.subs[topic] = append(b.subs[topic], ch)
	b.drops[ch] = new(atomic.Int64)

	return ch
}

// SubscribeAll creates a subscription to ALL topics.
// Returns a single read-only channel that receives events from every topic.
// bufSize determines the channel buffer size (defaults to 256 if <= 0).
func (b *EventBus) SubscribeAll(bufSize int) <-chan Event {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	ch := make(chan Event, bufSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.allSubs = append(b.allSubs, ch)
	b.drops[ch] = new(atomic.Int64)

	return ch
}

// Unsubscribe removes a subscription returned by Subscribe or SubscribeAll and
// closes its channel. Unknown channels and calls after Close are no-ops.
func (b *EventBus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	delete(b.drops, sub)

	for topic, channels := range b.subs {
		for i, ch := range channels {
			if ch == sub {
				b.subs[topic] = append(channels[:i:i], channels[i+1:]...)
				if len(b.subs[topic]) == 0 {
					delete(b.subs, topic)
				}
				close(ch)
				return
			}
		}
	}

	for i, ch := range b.allSubs {
		if ch == sub {
			b.allSubs = append(b.allSubs[:i:i], b.allSubs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Subscribers returns the number of live subscriptions across all topics.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.allSubs)
	for _, channels := range b.subs {
		n += len(channels)
	}
	return n
}

// Publish sends an event to all subscribers of the given topic.
// Non-blocking: if a subscriber's channel is full, the event is dropped for that subscriber.
// Also sends to all SubscribeAll channels.
func (b *EventBus) Publish(topic string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs[topic] {
		select {
		case ch <- event:
		default:
			// Channel full, drop event (non-blocking)
			b.drops[ch].Add(1)
		}
	}

	for _, ch := range b.allSubs {
		select {
		case ch <- event:
		default:
			b.drops[ch].Add(1)
		}
	}
}

// Dropped returns how many events were discarded for sub because its buffer
// was full. It keeps counting until Unsubscribe and stays readable after Close.
func (b *EventBus) Dropped(sub <-chan Event) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n, ok := b.drops[sub]; ok {
		return n.Load()
	}
	return 0
}

// Closed reports whether Close has been called.
func (b *EventBus) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Close closes the event bus and all subscriber channels.
// Safe to call multiple times (idempotent).
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for _, channels := range b.subs {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range b.allSubs {
		close(ch)
	}
	b.subs = make(map[string][]chan Event)
	b.allSubs = nil
}
