package pools

import (
	"errors"
	"sync"

	"github.com/gammazero/deque"
)

// ErrQueueClosed is returned by Push once the queue has been closed
var ErrQueueClosed = errors.New("queue closed")

// Delivery is an item handed to exactly one consumer
type Delivery[T any] struct {
	Value T
	// Seq is the zero-based dequeue position of this item across all consumers
	Seq uint64
}

// Queue is an unbounded multi-producer, multi-consumer FIFO handoff.
//
// Push never blocks beyond the internal lock. Pop blocks while the queue is
// empty and open; one consumer dequeues at a time. After Close, items already
// queued are still delivered, then Pop reports closed.
type Queue[T any] struct {
	mu     sync.Mutex
	ready  *sync.Cond
	items  deque.Deque[T]
	popped uint64
	closed bool
}

// NewQueue creates an empty open queue
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Push appends v to the tail of the queue
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items.PushBack(v)
	q.mu.Unlock()

	q.ready.Signal()
	return nil
}

// Pop removes the head of the queue, blocking until an item is available.
// ok is false once the queue is closed and drained.
func (q *Queue[T]) Pop() (d Delivery[T], ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 {
		if q.closed {
			return d, false
		}
		q.ready.Wait()
	}

	d.Value = q.items.PopFront()
	d.Seq = q.popped
	q.popped++
	return d, true
}

// Close stops accepting new items and wakes every blocked consumer.
// It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.ready.Broadcast()
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Closed reports whether Close has been called
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
