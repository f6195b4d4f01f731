package scanner

import (
	"sync"
	"time"
)

// EventType labels one lifecycle event in a scan's life.
type EventType string

const (
	EventScanStarted  EventType = "scan_started"
	EventStepComplete EventType = "step_complete"
	EventScanFinished EventType = "scan_finished"
)

// Event is one entry in a scan's lifecycle stream. Every request
// produces scan_started, zero or more step_complete, and exactly one
// scan_finished carrying the outcome. Events for one request are
// delivered in submission order.
type Event struct {
	RequestID string
	Type      EventType
	// Stage names the pipeline step for step_complete events.
	Stage string
	// Artifacts carries partial results for diagnostics.
	Artifacts map[string]any
	// Outcome is set on scan_finished.
	Outcome   *Outcome
	Timestamp time.Time
}

// Hub fans worker events out to any number of subscribers. Each
// subscriber owns a buffered channel; a subscriber that stops draining
// loses events rather than stalling the worker.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	buffer int
}

// NewHub creates a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[int]chan Event), buffer: buffer}
}

// scanEventBudget is an upper bound on the events one request emits:
// the started/finished pair, preprocess, one step per track, match,
// and resolve.
const scanEventBudget = 12

// NewBatchHub sizes a hub for a known request count, so a subscriber
// that drains late still receives every event of the batch,
// scan_finished included.
func NewBatchHub(requests int) *Hub {
	if requests < 1 {
		requests = 1
	}
	return NewHub(requests * scanEventBudget)
}

// Subscribe registers a listener. The returned cancel func must be
// called when the listener is done; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.buffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// Close drops all subscribers and closes their channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub)
	}
}
