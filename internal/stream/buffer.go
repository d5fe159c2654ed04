package stream

import (
	"strconv"
	"sync"
	"time"
)

// Event is one server-sent event of a dashboard session.
type Event struct {
	EventID   string `json:"event_id"`
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
	ServerTS  int64  `json:"server_ts"`
	Data      any    `json:"data"`
}

// Buffer keeps the most recent events for Last-Event-ID replay and fans new
// events out to subscribers. Slow subscribers miss events rather than block
// the publisher.
type Buffer struct {
	mu        sync.Mutex
	sessionID string
	nextID    int64
	max       int
	events    []Event
	watchers  map[chan Event]struct{}
	closed    bool
	now       func() time.Time
}

func NewBuffer(sessionID string, max int) *Buffer {
	if max <= 0 {
		max = 200
	}
	return &Buffer{
		sessionID: sessionID,
		max:       max,
		watchers:  map[chan Event]struct{}{},
		now:       time.Now,
	}
}

func (b *Buffer) Append(event string, data any) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return Event{}
	}
	b.nextID++
	ev := Event{
		EventID:   strconv.FormatInt(b.nextID, 10),
		Event:     event,
		SessionID: b.sessionID,
		ServerTS:  b.now().UnixMilli(),
		Data:      data,
	}
	b.events = append(b.events, ev)
	if len(b.events) > b.max {
		b.events = b.events[len(b.events)-b.max:]
	}
	for ch := range b.watchers {
		select {
		case ch <- ev:
		default:
			metricDroppedEvents.Add(1)
		}
	}
	return ev
}

func (b *Buffer) ReplayAfter(lastEventID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	last, err := strconv.ParseInt(lastEventID, 10, 64)
	if lastEventID == "" || err != nil {
		out := make([]Event, len(b.events))
		copy(out, b.events)
		return out
	}
	out := make([]Event, 0, len(b.events))
	for _, ev := range b.events {
		id, _ := strconv.ParseInt(ev.EventID, 10, 64)
		if id > last {
			out = append(out, ev)
		}
	}
	return out
}

func (b *Buffer) Subscribe() chan Event {
	ch := make(chan Event, 32)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.watchers[ch] = struct{}{}
	return ch
}

func (b *Buffer) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchers[ch]; ok {
		delete(b.watchers, ch)
		close(ch)
	}
}

// Subscribers reports how many streams are currently attached.
func (b *Buffer) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}

func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.watchers {
		close(ch)
		delete(b.watchers, ch)
	}
}
