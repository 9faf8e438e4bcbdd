// File: core/concurrency/executor.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across a fixed set of worker goroutines. Each
// worker drains its own BlockingQueue, so tasks submitted with the same key
// run in submission order on one worker while unrelated keys proceed in
// parallel. Loop threads use it to push slow user work off the I/O path.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-conn/api"
)

// ErrExecutorClosed is returned by Submit after Close.
var ErrExecutorClosed = api.ErrExecutorClosed

type TaskFunc func()

var _ api.Executor = (*Executor)(nil)

// Executor manages a pool of worker goroutines.
type Executor struct {
	queues []*BlockingQueue[TaskFunc]
	next   atomic.Uint64

	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup

	log *logrus.Entry
}

// NewExecutor starts numWorkers workers, each with a queue of queueCap tasks.
// numWorkers <= 0 selects runtime.NumCPU().
func NewExecutor(numWorkers, queueCap int, log *logrus.Entry) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	e := &Executor{
		queues: make([]*BlockingQueue[TaskFunc], numWorkers),
		log:    log.WithField("component", "executor"),
	}
	for i := range e.queues {
		e.queues[i] = NewBlockingQueue[TaskFunc](queueCap)
		w := &worker{id: i, queue: e.queues[i], log: e.log.WithField("worker", i)}
		e.wg.Add(1)
		go w.run(&e.wg)
	}
	return e
}

// Submit enqueues task on the next worker in round-robin order.
func (e *Executor) Submit(task func()) error {
	idx := (e.next.Add(1) - 1) % uint64(len(e.queues))
	return e.enqueue(idx, task)
}

// SubmitKeyed enqueues task on the worker owning key.
func (e *Executor) SubmitKeyed(key uint64, task func()) error {
	return e.enqueue(key%uint64(len(e.queues)), task)
}

func (e *Executor) enqueue(idx uint64, task func()) error {
	if task == nil {
		return nil
	}
	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	if e.closed {
		return ErrExecutorClosed
	}
	e.queues[idx].Put(task)
	return nil
}

// NumWorkers returns the worker count.
func (e *Executor) NumWorkers() int {
	return len(e.queues)
}

// Close rejects further tasks, lets workers drain what is queued and waits
// for them to exit. It is safe to call more than once.
func (e *Executor) Close() {
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		return
	}
	e.closed = true
	e.closeMu.Unlock()

	for _, q := range e.queues {
		q.Put(nil)
	}
	e.wg.Wait()
}

// worker runs tasks until it takes the nil stop marker.
type worker struct {
	id    int
	queue *BlockingQueue[TaskFunc]
	log   *logrus.Entry
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		task := w.queue.Take()
		if task == nil {
			return
		}
		w.safeExecute(task)
	}
}

func (w *worker) safeExecute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("panic", r).Error("task panicked")
		}
	}()
	task()
}
