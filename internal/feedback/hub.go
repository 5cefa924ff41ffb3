package feedback

import (
	"sync"
	"time"
)

// Event is a diagnostic with capture time, as streamed to live subscribers.
type Event struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Fatal   bool      `json:"fatal,omitempty"`
}

// Hub is a Sink that fans events out to live subscribers (the websocket
// surface) and keeps a bounded tail of recent events for late joiners.
// Slow subscribers lose events rather than stall publishers.
type Hub struct {
	mu     sync.Mutex
	retain int
	recent []Event
	subs   map[int]chan Event
	nextID int
}

func NewHub(retain int) *Hub {
	if retain <= 0 {
		retain = 128
	}
	return &Hub{retain: retain, subs: make(map[int]chan Event)}
}

func (h *Hub) Info(msg string) { h.publish(Event{Level: "info", Message: msg}) }
func (h *Hub) Warn(msg string) { h.publish(Event{Level: "warn", Message: msg}) }
func (h *Hub) Error(msg string, fatal bool) {
	h.publish(Event{Level: "error", Message: msg, Fatal: fatal})
}

func (h *Hub) publish(e Event) {
	if h == nil {
		return
	}
	e.Time = time.Now()

	h.mu.Lock()
	h.recent = append(h.recent, e)
	if over := len(h.recent) - h.retain; over > 0 {
		h.recent = append([]Event(nil), h.recent[over:]...)
	}
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
	h.mu.Unlock()
}

// Subscribe registers a live event channel. The returned cancel must be
// called when the subscriber goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	if h == nil {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	ch := make(chan Event, 64)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Recent returns a copy of the retained tail, oldest first.
func (h *Hub) Recent() []Event {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.recent...)
}

// SubscriberCount reports the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
