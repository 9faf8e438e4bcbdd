// File: reactor/timer.go
// Author: momentics <momentics@gmail.com>
//
// One-shot timers kept in a min-heap owned by the loop thread.

package reactor

import (
	"container/heap"
	"time"
)

type timer struct {
	when time.Time
	seq  uint64 // ties broken in scheduling order
	task func()
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) { *h = append(*h, x.(*timer)) }

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// timerQueue is confined to the loop thread.
type timerQueue struct {
	heap timerHeap
	seq  uint64
}

func (q *timerQueue) add(when time.Time, task func()) {
	q.seq++
	heap.Push(&q.heap, &timer{when: when, seq: q.seq, task: task})
}

// nextTimeout returns how long until the earliest timer, capped at max.
func (q *timerQueue) nextTimeout(now time.Time, max time.Duration) time.Duration {
	if len(q.heap) == 0 {
		return max
	}
	d := q.heap[0].when.Sub(now)
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}

// popExpired removes and returns every timer due at or before now, earliest first.
func (q *timerQueue) popExpired(now time.Time) []*timer {
	var due []*timer
	for len(q.heap) > 0 && !q.heap[0].when.After(now) {
		due = append(due, heap.Pop(&q.heap).(*timer))
	}
	return due
}

func (q *timerQueue) len() int { return len(q.heap) }
