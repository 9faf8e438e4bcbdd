// File: core/concurrency/blocking_queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BlockingQueue is a fixed-capacity FIFO for direct cross-goroutine hand-off
// between auxiliary components such as worker pools. Put blocks while the
// queue is full, Take blocks while it is empty.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
)

// BlockingQueue is a bounded, mutex-protected FIFO.
type BlockingQueue[T any] struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	notFull  sync.Cond
	items    *queue.Queue
	capacity int
}

// NewBlockingQueue creates a queue holding at most capacity items.
// Capacities below one are raised to one.
func NewBlockingQueue[T any](capacity int) *BlockingQueue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &BlockingQueue[T]{
		items:    queue.New(),
		capacity: capacity,
	}
	q.notEmpty.L = &q.mu
	q.notFull.L = &q.mu
	return q
}

// Put appends x, waiting while the queue is full.
func (q *BlockingQueue[T]) Put(x T) {
	q.mu.Lock()
	for q.items.Length() >= q.capacity {
		q.notFull.Wait()
	}
	q.items.Add(x)
	q.mu.Unlock()
	q.notEmpty.Signal()
}

// TryPut appends x only if there is room, reporting whether it did.
func (q *BlockingQueue[T]) TryPut(x T) bool {
	q.mu.Lock()
	if q.items.Length() >= q.capacity {
		q.mu.Unlock()
		return false
	}
	q.items.Add(x)
	q.mu.Unlock()
	q.notEmpty.Signal()
	return true
}

// Take removes and returns the oldest item, waiting while the queue is empty.
func (q *BlockingQueue[T]) Take() T {
	q.mu.Lock()
	for q.items.Length() == 0 {
		q.notEmpty.Wait()
	}
	x, _ := q.items.Remove().(T)
	q.mu.Unlock()
	q.notFull.Signal()
	return x
}

// Len returns the number of queued items.
func (q *BlockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Cap returns the fixed capacity.
func (q *BlockingQueue[T]) Cap() int { return q.capacity }

// Empty reports whether no items are queued.
func (q *BlockingQueue[T]) Empty() bool { return q.Len() == 0 }

// Full reports whether the queue is at capacity.
func (q *BlockingQueue[T]) Full() bool { return q.Len() >= q.capacity }
