package videoplayer

import (
	"context"
	"sync"
)

// FrameQueue is a mutex-protected FIFO shared between the decode goroutine
// and the output driver. Items leave in insertion order. There is no hard
// capacity; the decode loop stops reading once a queue is above its
// low-water mark.
type FrameQueue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	notify chan struct{}
}

// NewFrameQueue creates an empty queue with room for capacity items before
// it has to grow.
func NewFrameQueue[T any](capacity int) *FrameQueue[T] {
	return &FrameQueue[T]{
		items:  make([]T, 0, capacity),
		notify: make(chan struct{}, 1),
	}
}

// Push appends v at the tail and wakes a pending Wait.
func (q *FrameQueue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Wait blocks until the queue holds at least one item or ctx is done. It
// returns false if ctx ended first. The output driver never waits; this is
// for hosts and tests that need to block on the first decoded frame.
func (q *FrameQueue[T]) Wait(ctx context.Context) bool {
	for {
		if q.Len() > 0 {
			return true
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return q.Len() > 0
		}
	}
}

// TryPop removes and returns the head item. The bool is false if the queue
// is empty.
func (q *FrameQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// PopIf removes and returns the head item only if due reports true for it.
func (q *FrameQueue[T]) PopIf(due func(T) bool) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) || !due(q.items[q.head]) {
		var zero T
		return zero, false
	}
	return q.popLocked()
}

// Peek returns the head item without removing it.
func (q *FrameQueue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		var zero T
		return zero, false
	}
	return q.items[q.head], true
}

// Len returns the number of queued items.
func (q *FrameQueue[T]) Len() int {
	q.mu.Lock()
	n := len(q.items) - q.head
	q.mu.Unlock()
	return n
}

// Clear drops every queued item and returns how many were dropped.
func (q *FrameQueue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items) - q.head
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	return n
}

func (q *FrameQueue[T]) popLocked() (T, bool) {
	var zero T
	if q.head == len(q.items) {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v, true
}
