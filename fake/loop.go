// Author: momentics <momentics@gmail.com>

package fake

import (
	"sort"
	"sync"
	"time"

	"github.com/momentics/hioload-conn/api"
)

var _ api.Dispatcher = (*Loop)(nil)

type timer struct {
	at   time.Duration
	seq  int
	task func()
}

// Loop is a manually driven api.Dispatcher with a virtual clock.
//
// By default the caller counts as the loop thread. SetInLoop(false) makes
// RunInLoop queue instead, which is how tests model a foreign goroutine.
type Loop struct {
	mu      sync.Mutex
	inLoop  bool
	running bool
	pending []func()
	timers  []timer
	seq     int
	now     time.Duration
}

// NewLoop returns a loop that treats the caller as its owning thread.
func NewLoop() *Loop { return &Loop{inLoop: true} }

// SetInLoop sets what IsInLoop reports outside of RunPending and Advance.
func (l *Loop) SetInLoop(v bool) {
	l.mu.Lock()
	l.inLoop = v
	l.mu.Unlock()
}

func (l *Loop) IsInLoop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inLoop || l.running
}

func (l *Loop) RunInLoop(task func()) {
	if l.IsInLoop() {
		task()
		return
	}
	l.QueueInLoop(task)
}

func (l *Loop) QueueInLoop(task func()) {
	l.mu.Lock()
	l.pending = append(l.pending, task)
	l.mu.Unlock()
}

func (l *Loop) RunAfter(delay time.Duration, task func()) {
	l.mu.Lock()
	l.seq++
	l.timers = append(l.timers, timer{at: l.now + delay, seq: l.seq, task: task})
	l.mu.Unlock()
}

// RunPending runs queued tasks in FIFO order, including tasks queued by
// them, and returns how many ran.
func (l *Loop) RunPending() int {
	restore := l.enter()
	defer restore()
	ran := 0
	for {
		l.mu.Lock()
		if len(l.pending) == 0 {
			l.mu.Unlock()
			return ran
		}
		task := l.pending[0]
		l.pending = l.pending[1:]
		l.mu.Unlock()
		task()
		ran++
	}
}

// Advance moves the virtual clock by d, fires due timers in deadline order
// and then drains the pending queue.
func (l *Loop) Advance(d time.Duration) {
	restore := l.enter()
	l.mu.Lock()
	l.now += d
	now := l.now
	l.mu.Unlock()
	for {
		task, ok := l.popDue(now)
		if !ok {
			break
		}
		task()
	}
	restore()
	l.RunPending()
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Timers returns the number of armed timers.
func (l *Loop) Timers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

func (l *Loop) popDue(now time.Duration) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sort.Slice(l.timers, func(i, j int) bool {
		if l.timers[i].at == l.timers[j].at {
			return l.timers[i].seq < l.timers[j].seq
		}
		return l.timers[i].at < l.timers[j].at
	})
	if len(l.timers) == 0 || l.timers[0].at > now {
		return nil, false
	}
	t := l.timers[0]
	l.timers = l.timers[1:]
	return t.task, true
}

func (l *Loop) enter() func() {
	l.mu.Lock()
	prev := l.running
	l.running = true
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.running = prev
		l.mu.Unlock()
	}
}
