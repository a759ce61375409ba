package telem

import (
	"sync"
	"time"

	"github.com/Jtaz8681/boat-app/pkg/geo"
)

// EventType classifies entries in the event stream.
type EventType string

const (
	EventPosition EventType = "position"
	EventError    EventType = "error"
	EventState    EventType = "state"
)

// Event is one entry in the position/error/state stream. Exactly one of
// the payload fields is meaningful per type.
type Event struct {
	Type      EventType     `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Source    string        `json:"source,omitempty"`   // provider or session name
	Position  *geo.Position `json:"position,omitempty"` // EventPosition
	Code      string        `json:"code,omitempty"`     // EventError taxonomy code
	Message   string        `json:"message,omitempty"`  // EventError / EventState detail
	FromState string        `json:"from_state,omitempty"`
	ToState   string        `json:"to_state,omitempty"`
}

// Store buffers events in RAM with bounded capacity and time-based
// retention, decoupling platform callback timing from consumers that
// drain on their own schedule. An optional callback forwards each event
// in real time (MQTT publishing, UI pushes).
type Store struct {
	mu        sync.RWMutex
	events    []Event
	capacity  int
	retention time.Duration
	callback  func(Event)
}

// NewStore creates a store holding at most capacity events, discarding
// entries older than retention on insert.
func NewStore(capacity int, retention time.Duration) *Store {
	if capacity <= 0 {
		capacity = 1024
	}
	if retention <= 0 {
		retention = time.Hour
	}
	return &Store{
		events:    make([]Event, 0, capacity),
		capacity:  capacity,
		retention: retention,
	}
}

// SetCallback installs a real-time event consumer. Pass nil to remove it.
// The callback runs on the publisher's goroutine and must not block.
func (s *Store) SetCallback(fn func(Event)) {
	s.mu.Lock()
	s.callback = fn
	s.mu.Unlock()
}

// Publish appends an event, evicting by age and capacity.
func (s *Store) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	s.mu.Lock()
	cutoff := time.Now().Add(-s.retention)
	trimmed := s.events
	for len(trimmed) > 0 && trimmed[0].Timestamp.Before(cutoff) {
		trimmed = trimmed[1:]
	}
	if len(trimmed) >= s.capacity {
		trimmed = trimmed[len(trimmed)-s.capacity+1:]
	}
	s.events = append(trimmed[:len(trimmed):len(trimmed)], ev)
	cb := s.callback
	s.mu.Unlock()

	if cb != nil {
		cb(ev)
	}
}

// Since returns a copy of all events at or after t, oldest first.
func (s *Store) Since(t time.Time) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if !ev.Timestamp.Before(t) {
			out = append(out, ev)
		}
	}
	return out
}

// Latest returns up to n most recent events, oldest first.
func (s *Store) Latest(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.events) {
		n = len(s.events)
	}
	out := make([]Event, n)
	copy(out, s.events[len(s.events)-n:])
	return out
}

// Len reports the number of buffered events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
