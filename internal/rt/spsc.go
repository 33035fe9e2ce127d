// ABOUTME: Lock-free single-producer single-consumer command queue
// ABOUTME: Carries control commands into the real-time audio callback
package rt

import "sync/atomic"

// Queue is a fixed-capacity single-producer/single-consumer ring.
// Exactly one goroutine may call Push and exactly one may call Pop;
// under that contract no locks are needed and Pop never blocks, which
// makes it safe to drain from a real-time audio callback.
type Queue[T any] struct {
	buf  []T
	mask uint64
	head atomic.Uint64 // next slot to pop
	tail atomic.Uint64 // next slot to push
}

// NewQueue creates a queue holding up to capacity items. Capacity is
// rounded up to a power of two.
func NewQueue[T any](capacity int) *Queue[T] {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &Queue[T]{
		buf:  make([]T, n),
		mask: uint64(n - 1),
	}
}

// Push enqueues an item from the producer side. Returns false if the
// queue is full; the caller decides whether to retry or drop.
func (q *Queue[T]) Push(v T) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buf)) {
		return false
	}
	q.buf[tail&q.mask] = v
	q.tail.Store(tail + 1)
	return true
}

// Pop dequeues an item from the consumer side without blocking.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	head := q.head.Load()
	if head == q.tail.Load() {
		return zero, false
	}
	v := q.buf[head&q.mask]
	q.buf[head&q.mask] = zero
	q.head.Store(head + 1)
	return v, true
}

// Len reports the number of queued items. Advisory only under
// concurrent use.
func (q *Queue[T]) Len() int {
	return int(q.tail.Load() - q.head.Load())
}
