package events

import "sync"

// Queue is a thread-safe FIFO queue that doubles its capacity when it
// reaches 70% full, so producers never block on a slow consumer.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []T
	head   int // read position
	tail   int // write position
	count  int
	cap    int
	closed bool
}

// NewQueue creates a queue with the given initial capacity.
func NewQueue[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &Queue[T]{
		buf: make([]T, initialCapacity),
		cap: initialCapacity,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item, growing the queue if needed.
// Returns false if the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	threshold := (q.cap * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % q.cap
	q.count++

	q.cond.Signal()
	return true
}

// Pop removes and returns the oldest item, blocking until one is
// available or the queue is closed. Returns false once the queue is
// closed and drained.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.count == 0 {
		var zero T
		return zero, false
	}

	return q.popLocked(), true
}

// TryPop removes and returns the oldest item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}

	return q.popLocked(), true
}

// Drain removes up to max items (all items when max <= 0).
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	n := q.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]T, n)
	for i := range out {
		out[i] = q.popLocked()
	}
	return out
}

// Close closes the queue. Push returns false afterwards; consumers
// drain remaining items and then see the closed signal.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// popLocked removes the head item. Caller must hold q.mu and have
// verified count > 0.
func (q *Queue[T]) popLocked() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // release reference for GC
	q.head = (q.head + 1) % q.cap
	q.count--
	return item
}

// grow doubles capacity. Caller must hold q.mu.
func (q *Queue[T]) grow() {
	newCap := q.cap * 2
	newBuf := make([]T, newCap)

	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.cap = newCap
}
