package scheduler

import (
	"sync"

	"github.com/pulsemon/pulsemon/internal/domain"
)

// Broadcaster is the engine's observable event stream. Every completed check
// publishes a StatusEvent; the presentation layer subscribes instead of being
// called into. Publishing never blocks: a subscriber that falls behind loses
// events, the engine never waits on UI readiness.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan domain.StatusEvent
	next int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan domain.StatusEvent)}
}

// Subscribe returns a buffered event channel and a cancel func that closes it.
func (b *Broadcaster) Subscribe() (<-chan domain.StatusEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan domain.StatusEvent, 16)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

func (b *Broadcaster) Publish(ev domain.StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default: // slow subscriber, drop
		}
	}
}
