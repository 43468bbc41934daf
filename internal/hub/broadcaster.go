package hub

import (
	"sync"

	"github.com/akarlsen/craftwatch/internal/events"
)

// Broadcaster fans values of one topic out to any number of
// subscribers. Publishing never blocks: every subscriber owns a
// growable queue drained by its own write pump.
type Broadcaster[T any] struct {
	mu      sync.Mutex
	subs    map[*Subscriber[T]]struct{}
	last    T
	hasLast bool
	closed  bool
}

// Subscriber is one attached consumer.
type Subscriber[T any] struct {
	b     *Broadcaster[T]
	queue *events.Queue[T]
}

// New creates an empty broadcaster.
func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		subs: make(map[*Subscriber[T]]struct{}),
	}
}

// Publish caches v as the latest payload and enqueues it for every
// subscriber.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.last = v
	b.hasLast = true
	for s := range b.subs {
		s.queue.Push(v)
	}
}

// Last returns the most recently published payload.
func (b *Broadcaster[T]) Last() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.hasLast
}

// Subscribe attaches a new consumer. The latest payload, if any, is
// already queued so a fresh subscriber starts with current state.
func (b *Broadcaster[T]) Subscribe() *Subscriber[T] {
	s := &Subscriber[T]{
		b:     b,
		queue: events.NewQueue[T](16),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		s.queue.Close()
		return s
	}
	if b.hasLast {
		s.queue.Push(b.last)
	}
	b.subs[s] = struct{}{}
	return s
}

// Count returns the number of attached subscribers.
func (b *Broadcaster[T]) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches all subscribers. Their Next calls return false after
// the queues drain.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.queue.Close()
	}
	b.subs = make(map[*Subscriber[T]]struct{})
}

// Next blocks for the next payload. It returns false once the
// subscription is closed and drained.
func (s *Subscriber[T]) Next() (T, bool) {
	return s.queue.Pop()
}

// Close detaches the subscriber.
func (s *Subscriber[T]) Close() {
	s.b.mu.Lock()
	delete(s.b.subs, s)
	s.b.mu.Unlock()
	s.queue.Close()
}
