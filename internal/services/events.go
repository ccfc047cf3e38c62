package services

import (
	"sync"

	"github.com/google/logger"

	"github.com/theotime2005/blocklucky/internal/models"
)

// EventBus fans emitted events out to subscribers. Delivery never blocks the
// lottery; a subscriber whose buffer is full misses the event.
type EventBus struct {
	mu   sync.RWMutex
	subs map[int]chan models.Event
	next int
}

// NewEventBus returns a bus without subscribers.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan models.Event)}
}

// Subscribe registers a subscriber. The returned cancel func closes the
// channel and is safe to call more than once.
func (b *EventBus) Subscribe(buffer int) (<-chan models.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan models.Event, buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers events in order to every subscriber.
func (b *EventBus) Publish(events ...models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		for _, ev := range events {
			select {
			case ch <- ev:
			default:
				logger.Warningf("event subscriber %d is full, dropped %s", id, ev.Kind)
			}
		}
	}
}
