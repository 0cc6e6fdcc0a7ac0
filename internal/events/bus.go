// Package events provides the in-process pub/sub bus for run lifecycle
// events consumed by the websocket stream and other observers.
package events

import (
	"sync"
	"time"
)

// EventType identifies a kind of system event
type EventType string

const (
	// AnalysisStarted is published when an analysis run begins
	AnalysisStarted EventType = "analysis.started"
	// AnalysisCompleted is published when an analysis run finishes successfully
	AnalysisCompleted EventType = "analysis.completed"
	// AnalysisFailed is published when an analysis run aborts
	AnalysisFailed EventType = "analysis.failed"
	// HorizonSkipped is published per horizon with insufficient history
	HorizonSkipped EventType = "analysis.horizon_skipped"
)

// Event is a single system event with free-form payload data
type Event struct {
	Type      EventType              `json:"type"`
	Module    string                 `json:"module"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(*Event)

// Bus is a minimal in-process event bus. Safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[EventType]map[int]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType]map[int]Handler)}
}

// Subscribe registers a handler for one event type and returns an
// unsubscribe function. Connection-scoped subscribers (e.g. websocket
// clients) must call it on teardown.
func (b *Bus) Subscribe(t EventType, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[t] == nil {
		b.subs[t] = make(map[int]Handler)
	}
	id := b.next
	b.next++
	b.subs[t][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[t], id)
	}
}

// Publish delivers an event to all handlers subscribed to its type.
// A zero timestamp is filled in with the current time.
func (b *Bus) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[event.Type]))
	for _, h := range b.subs[event.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
