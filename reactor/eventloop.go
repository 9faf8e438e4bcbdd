// File: reactor/eventloop.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoop is the single-threaded dispatch loop. One iteration is:
//
//  1. wait for readiness (bounded by the next timer and the poll timeout)
//  2. run the handlers of every ready Channel
//  3. run expired timers
//  4. drain the pending-task FIFO filled by QueueInLoop
//
// The pending FIFO is the only structure shared with other goroutines and
// the only one behind a mutex.

package reactor

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-conn/affinity"
	"github.com/momentics/hioload-conn/api"
	"github.com/momentics/hioload-conn/control"
)

var _ api.Dispatcher = (*EventLoop)(nil)

var loopSeq atomic.Uint64

// EventLoop owns a poller, a wakeup descriptor, timers and a pending-task queue.
type EventLoop struct {
	name   string
	poller *poller
	wakeFd int
	wakeCh *Channel

	threadID atomic.Int64 // kernel tid of the running loop, 0 when not running
	started  atomic.Bool
	quit     atomic.Bool
	done     chan struct{}
	release  sync.Once

	mu      sync.Mutex // guards pending
	pending *queue.Queue
	spare   *queue.Queue // loop thread only

	callingPending bool // loop thread only
	eventHandling  bool
	timers         timerQueue
	active         []*Channel
	iteration      uint64

	pollTimeout time.Duration
	cpu         int
	log         *logrus.Entry
	metrics     *control.Metrics
}

// New creates a loop. It does not start it; call Run on the goroutine that
// should own it.
func New(opts ...Option) (*EventLoop, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = fmt.Sprintf("loop-%d", loopSeq.Add(1))
	}

	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	wfd, err := newWakeFd()
	if err != nil {
		_ = p.close()
		return nil, err
	}

	l := &EventLoop{
		name:        o.name,
		poller:      p,
		wakeFd:      wfd,
		done:        make(chan struct{}),
		pending:     queue.New(),
		spare:       queue.New(),
		pollTimeout: o.pollTimeout,
		cpu:         o.cpu,
		log:         control.Entry(o.log).WithField("loop", o.name),
		metrics:     o.metrics,
	}
	l.wakeCh = NewChannel(l, wfd)
	l.wakeCh.SetReadHandler(func(time.Time) { l.handleWakeup() })
	// No thread owns the loop yet, so register directly with the poller.
	l.wakeCh.events = readEvents
	l.wakeCh.addedToLoop = true
	if err := p.updateChannel(l.wakeCh); err != nil {
		_ = closeWakeFd(wfd)
		_ = p.close()
		return nil, err
	}
	return l, nil
}

// Name returns the loop's name as used in logs and metrics.
func (l *EventLoop) Name() string { return l.name }

// Run locks the calling goroutine to its OS thread and dispatches until Quit.
// A loop runs at most once.
func (l *EventLoop) Run() error {
	if !l.started.CompareAndSwap(false, true) {
		return api.ErrLoopStarted
	}
	defer close(l.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	l.threadID.Store(currentThreadID())
	defer l.threadID.Store(0)
	if l.cpu >= 0 {
		if err := affinity.SetAffinity(l.cpu); err != nil {
			l.log.WithError(err).Warn("cpu pinning failed")
		} else {
			l.log.WithField("cpu", l.cpu).Debug("loop pinned")
		}
	}

	l.log.Debug("loop started")
	for !l.quit.Load() {
		timeout := l.timers.nextTimeout(time.Now(), l.pollTimeout)
		active, receiveTime, err := l.poller.poll(toMillis(timeout), l.active[:0])
		l.active = active
		if err != nil {
			l.log.WithError(err).Error("poll failed")
		}
		l.iteration++

		l.eventHandling = true
		for _, ch := range l.active {
			ch.handleEvent(receiveTime)
		}
		l.eventHandling = false

		for _, t := range l.timers.popExpired(time.Now()) {
			t.task()
		}
		l.doPending()
	}
	// tasks queued while quitting still see the owning thread
	l.doPending()
	l.log.Debug("loop stopped")
	return nil
}

// Quit asks the loop to return from Run after the current iteration.
func (l *EventLoop) Quit() {
	l.quit.Store(true)
	if !l.IsInLoop() {
		l.wakeup()
	}
}

// Stop quits the loop and, unless called from the loop itself, waits for Run
// to return.
func (l *EventLoop) Stop() {
	l.Quit()
	if l.started.Load() && !l.IsInLoop() {
		<-l.done
	}
}

// Close stops the loop and releases its descriptors.
func (l *EventLoop) Close() error {
	l.Stop()
	var err error
	l.release.Do(func() {
		if cerr := closeWakeFd(l.wakeFd); cerr != nil {
			err = cerr
		}
		if cerr := l.poller.close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

// Done is closed when Run returns.
func (l *EventLoop) Done() <-chan struct{} { return l.done }

// IsInLoop reports whether the caller runs on the loop's thread.
func (l *EventLoop) IsInLoop() bool {
	tid := l.threadID.Load()
	return tid != 0 && tid == currentThreadID()
}

// AssertInLoop panics when called from a foreign thread.
func (l *EventLoop) AssertInLoop() {
	if !l.IsInLoop() {
		panic(fmt.Sprintf("reactor: loop %s used from a foreign thread", l.name))
	}
}

// RunInLoop runs task now on the loop thread, or queues it from elsewhere.
func (l *EventLoop) RunInLoop(task func()) {
	if l.IsInLoop() {
		task()
		return
	}
	l.QueueInLoop(task)
}

// QueueInLoop appends task to the pending FIFO.
func (l *EventLoop) QueueInLoop(task func()) {
	l.mu.Lock()
	l.pending.Add(task)
	l.mu.Unlock()

	// A task queued while draining would otherwise wait a full poll timeout.
	if !l.IsInLoop() || l.callingPending {
		l.wakeup()
	}
}

// RunAfter runs task once on the loop thread after delay.
func (l *EventLoop) RunAfter(delay time.Duration, task func()) {
	when := time.Now().Add(delay)
	l.RunInLoop(func() { l.timers.add(when, task) })
}

// PendingLen returns the number of queued tasks.
func (l *EventLoop) PendingLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending.Length()
}

// HasChannel reports whether ch is registered with this loop's poller.
func (l *EventLoop) HasChannel(ch *Channel) bool {
	l.AssertInLoop()
	return l.poller.hasChannel(ch)
}

func (l *EventLoop) updateChannel(ch *Channel) {
	if ch.loop != l {
		panic("reactor: channel belongs to another loop")
	}
	l.AssertInLoop()
	if err := l.poller.updateChannel(ch); err != nil {
		l.log.WithError(err).WithField("fd", ch.fd).Error("update channel")
	}
}

func (l *EventLoop) removeChannel(ch *Channel) {
	if ch.loop != l {
		panic("reactor: channel belongs to another loop")
	}
	l.AssertInLoop()
	if err := l.poller.removeChannel(ch); err != nil {
		l.log.WithError(err).WithField("fd", ch.fd).Error("remove channel")
	}
}

func (l *EventLoop) wakeup() {
	if err := signalWakeFd(l.wakeFd); err != nil {
		l.log.WithError(err).Error("wakeup")
	}
}

func (l *EventLoop) handleWakeup() {
	if err := drainWakeFd(l.wakeFd); err != nil {
		l.log.WithError(err).Error("drain wakeup")
	}
}

func (l *EventLoop) doPending() {
	l.mu.Lock()
	tasks := l.pending
	l.pending = l.spare
	l.mu.Unlock()

	n := tasks.Length()
	l.callingPending = true
	for tasks.Length() > 0 {
		tasks.Remove().(func())()
	}
	l.callingPending = false
	l.spare = tasks
	l.metrics.Pending(l.name, n)
}

func toMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
