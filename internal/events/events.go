package events

import (
	"io"
	"sync"
	"time"
)

// Status is the lifecycle state carried by an Event.
type Status string

const (
	StatusStarted Status = "started"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusInfo    Status = "info"
)

// Event represents one progress notification of a verification run
type Event struct {
	RunID    string        `json:"run_id"`
	Step     int           `json:"step,omitempty"`
	Name     string        `json:"name,omitempty"`
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
	Time     time.Time     `json:"time"`
}

// Sink receives events. Handle must not block for long; it runs on the
// goroutine driving the run.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Handle calls f(e).
func (f SinkFunc) Handle(e Event) { f(e) }

// Emitter is anything events can be sent to.
type Emitter interface {
	Emit(Event)
}

// Hub fans events out to registered sinks and channel subscribers
type Hub struct {
	sinks       []Sink
	subscribers []chan Event
	closed      bool
	mu          sync.RWMutex
}

// NewHub creates a new event hub
func NewHub(sinks ...Sink) *Hub {
	h := &Hub{}
	for _, s := range sinks {
		h.Register(s)
	}
	return h
}

// Register adds a sink. Nil sinks are ignored.
func (h *Hub) Register(s Sink) {
	if s == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, s)
}

// Subscribe creates a buffered channel receiving every emitted event
func (h *Hub) Subscribe() <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 32)
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers = append(h.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel
func (h *Hub) Unsubscribe(ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range h.subscribers {
		if sub == ch {
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			close(sub)
			break
		}
	}
}

// Emit delivers an event to all sinks in registration order, then to subscribers
func (h *Hub) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for _, s := range h.sinks {
		s.Handle(e)
	}

	for _, ch := range h.subscribers {
		select {
		case ch <- e:
		default:
			// Skip if channel is full
		}
	}
}

// Close closes all subscriptions and every sink implementing io.Closer.
// The first close error is returned.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil

	var firstErr error
	for _, s := range h.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Handle implements Sink.
func (r *Recorder) Handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Steps returns the names of the steps that reached status, in order.
func (r *Recorder) Steps(status Status) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, e := range r.events {
		if e.Status == status {
			names = append(names, e.Name)
		}
	}
	return names
}
