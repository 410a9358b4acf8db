package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the default channel buffer size for subscribers.
const DefaultBufferSize = 100

// subscription is one consumer of the router. A nil filter accepts every
// event type.
type subscription struct {
	ch     chan Event
	filter map[EventType]bool
}

func (s subscription) accepts(t EventType) bool {
	return s.filter == nil || s.filter[t]
}

// Router fans run events out to subscribers. Emit never blocks the
// evaluation goroutine: a subscriber whose buffer is full misses the event
// and the drop is counted.
type Router struct {
	subs       []subscription
	bufferSize int
	mu         sync.RWMutex
	closed     bool
	dropped    atomic.Int64
}

// NewRouter creates a new event router with the specified default buffer size.
// If bufferSize is 0 or negative, DefaultBufferSize is used.
func NewRouter(bufferSize int) *Router {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Router{
		bufferSize: bufferSize,
	}
}

// Emit publishes an event to every subscriber that accepts its type.
// Emit is safe to call concurrently and after Close (becomes a no-op).
func (r *Router) Emit(event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	for _, sub := range r.subs {
		if !sub.accepts(event.Type()) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			r.dropped.Add(1)
			slog.Warn("event dropped: subscriber channel full",
				"event_type", event.Type(),
				"source", event.Source(),
			)
		}
	}
}

// Subscribe returns a channel that receives all emitted events.
// The channel has the router's default buffer size.
// The returned channel is closed when the router is closed.
func (r *Router) Subscribe() <-chan Event {
	return r.SubscribeBuffered(r.bufferSize)
}

// SubscribeBuffered returns a channel with the specified buffer size.
// Steps arrive much faster than a terminal can draw them when no delay is
// configured, so display consumers should ask for a large buffer.
func (r *Router) SubscribeBuffered(size int) <-chan Event {
	return r.subscribe(size, nil)
}

// SubscribeTypes returns a buffered channel that only receives the listed
// event types.
func (r *Router) SubscribeTypes(size int, types ...EventType) <-chan Event {
	filter := make(map[EventType]bool, len(types))
	for _, t := range types {
		filter[t] = true
	}
	return r.subscribe(size, filter)
}

func (r *Router) subscribe(size int, filter map[EventType]bool) <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, size)
	r.subs = append(r.subs, subscription{ch: ch, filter: filter})
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// It is safe to call with a channel that was never subscribed or already unsubscribed.
func (r *Router) Unsubscribe(ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subs {
		if sub.ch == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was
// full.
func (r *Router) Dropped() int64 {
	return r.dropped.Load()
}

// Close closes all subscriber channels. Later Emits are no-ops and later
// subscriptions receive an already closed channel. Close is idempotent.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.closed = true
	for _, sub := range r.subs {
		close(sub.ch)
	}
	r.subs = nil
}
