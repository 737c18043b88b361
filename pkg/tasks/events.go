package tasks

import (
	"sync"
	"time"

	"site-crawler/pkg/models"
)

// EventLog is one task's append-only event history. Push subscribers get a
// channel replayed from any index; pull clients poll EventsSince. Both see
// identical entries in identical order because indices are assigned at
// append time under the log's lock.
type EventLog struct {
	mu     sync.Mutex
	events []models.TaskEvent
	subs   map[int]chan models.TaskEvent
	nextID int
	closed bool
}

func NewEventLog() *EventLog {
	return &EventLog{subs: make(map[int]chan models.TaskEvent)}
}

// Append assigns the next index and fans the event out to subscribers. A
// subscriber too slow to drain its buffer is dropped rather than blocking
// the crawl; it can resubscribe from its last seen index.
func (l *EventLog) Append(ev models.TaskEvent) models.TaskEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ev
	}
	ev.Index = len(l.events)
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	l.events = append(l.events, ev)

	for id, ch := range l.subs {
		select {
		case ch <- ev:
		default:
			delete(l.subs, id)
			close(ch)
		}
	}
	return ev
}

// EventsSince returns every event with Index > after, in order.
func (l *EventLog) EventsSince(after int) []models.TaskEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if after < -1 {
		after = -1
	}
	start := after + 1
	if start >= len(l.events) {
		return nil
	}
	out := make([]models.TaskEvent, len(l.events)-start)
	copy(out, l.events[start:])
	return out
}

// Subscribe returns a channel that first replays events after the given
// index, then streams live appends. The channel closes when the log closes
// or the subscriber falls behind. Call the returned cancel func when done.
func (l *EventLog) Subscribe(after int, buffer int) (<-chan models.TaskEvent, func()) {
	if buffer < 16 {
		buffer = 16
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan models.TaskEvent, buffer)

	if after < -1 {
		after = -1
	}
	for i := after + 1; i < len(l.events); i++ {
		select {
		case ch <- l.events[i]:
		default:
			// Replay larger than the buffer: deliver what fits and let the
			// subscriber poll EventsSince for the rest.
			i = len(l.events)
		}
	}

	if l.closed {
		close(ch)
		return ch, func() {}
	}

	id := l.nextID
	l.nextID++
	l.subs[id] = ch

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if sub, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Len returns the number of appended events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Close stops accepting appends and closes every subscriber channel. The
// history stays readable through EventsSince.
func (l *EventLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}
