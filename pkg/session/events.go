package session

import (
	"sync"
	"time"
)

type EventType string

const (
	EventCommandSubmitted EventType = "command_submitted"
	EventCommandCompleted EventType = "command_completed"
	EventCommandFailed    EventType = "command_failed"
	EventWorkerStopped    EventType = "worker_stopped"
)

// Event describes one step in a command's lifecycle. RequestID is the
// command's correlation identifier.
type Event struct {
	Type      EventType `json:"type"`
	At        time.Time `json:"at"`
	Command   string    `json:"command,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Error     string    `json:"error,omitempty"`
}

const defaultEventBuffer = 100

// eventHub fans command lifecycle events out to subscribers without ever
// blocking the dispatch worker or the façade.
type eventHub struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	nextID uint64
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[uint64]chan Event)}
}

func (h *eventHub) publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	// Fan out under the lock so an unsubscribe cannot close a channel
	// mid-publish. Sends never block: channels are buffered and overflow
	// is dropped.
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
			// Drop instead of blocking on slow subscribers.
		}
	}
}

func (h *eventHub) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
			h.mu.Unlock()
		})
	}

	return ch, unsubscribe
}
