package app

import (
	"sync"

	"github.com/jaakkos/loomwork/internal/domain"
)

const defaultHistoryCap = 256

// Broadcaster fans session events out to live observers (dashboard SSE
// clients). Fan-out is best-effort: a subscriber whose channel is full is
// dropped rather than applying backpressure to the writer, and recent
// history is capped with oldest-first eviction.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[int]chan domain.Event
	nextID  int
	history []domain.Event
	cap     int
}

// NewBroadcaster creates a broadcaster with the default history capacity.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan domain.Event),
		cap:  defaultHistoryCap,
	}
}

// Subscribe registers an observer. The returned channel receives events
// until the subscriber falls behind (channel full) or cancel is called;
// in both cases the channel is closed.
func (b *Broadcaster) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan domain.Event, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish records the event in history and delivers it to all subscribers
// without blocking. Slow subscribers are dropped.
func (b *Broadcaster) Publish(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, ev)
	if len(b.history) > b.cap {
		b.history = b.history[len(b.history)-b.cap:]
	}

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Recent returns up to limit most recent events in chronological order.
// limit <= 0 returns the full retained history.
func (b *Broadcaster) Recent(limit int) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Event, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

// SubscriberCount returns the number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
