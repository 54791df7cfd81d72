package events

import (
	"sync"
	"sync/atomic"
)

// Topic is a minimal in-process pub/sub channel fan-out. Each notification
// kind gets its own Topic so subscribers receive compile-time-checked
// payloads instead of stringly-typed emitter arguments.
type Topic[T any] struct {
	mu      sync.RWMutex
	subs    map[uint64]chan T
	next    uint64
	dropped atomic.Uint64
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[uint64]chan T)}
}

// Subscribe registers a buffered subscriber channel and returns it together
// with an unsubscribe function. Unsubscribing closes the channel.
func (t *Topic[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan T, buffer)

	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = ch
	t.mu.Unlock()

	unsubscribe := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish delivers val to every subscriber without blocking the caller.
// A subscriber whose buffer is full misses the notification; publishers
// must never stall on a slow consumer. Misses are counted so lossiness is
// observable rather than silent.
func (t *Topic[T]) Publish(val T) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, ch := range t.subs {
		select {
		case ch <- val:
		default:
			t.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were missed because a subscriber's
// buffer was full.
func (t *Topic[T]) Dropped() uint64 {
	return t.dropped.Load()
}

// SubscriberCount reports the number of registered subscribers.
func (t *Topic[T]) SubscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
