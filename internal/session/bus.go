package session

import (
	"sync"

	"valet/internal/logging"
)

// Bus is a process-wide synchronous broadcast of session events. Fan-out
// follows subscription order. Subscribers must not block; a panicking
// subscriber is isolated so it never propagates to the publisher or to
// later subscribers. There is no buffering or replay.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber
	log    *logging.Logger
}

type subscriber struct {
	id int
	fn func(Event)
}

// NewBus creates an event bus with no subscribers.
func NewBus() *Bus {
	return &Bus{log: logging.Get(logging.CategorySession)}
}

// Subscribe registers fn and returns an unsubscribe function. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every subscriber synchronously, in subscription
// order. A slow subscriber delays the publisher; an absent one simply
// misses the event.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("subscriber %d panicked on %s event: %v", s.id, e.Kind, r)
		}
	}()
	s.fn(e)
}
