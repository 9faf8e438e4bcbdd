// File: reactor/loop_group.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LoopGroup runs a fixed set of EventLoops, one goroutine each, and hands
// them out round-robin to new connections.

package reactor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-conn/control"
)

type LoopGroup struct {
	loops []*EventLoop
	next  atomic.Uint64
	wg    sync.WaitGroup
	start sync.Once
	log   *logrus.Entry
}

// NewLoopGroup creates n loops named prefix-0 .. prefix-(n-1).
// n == 0 yields an empty group whose Next returns nil.
func NewLoopGroup(prefix string, n int, opts ...Option) (*LoopGroup, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	g := &LoopGroup{log: control.Entry(o.log).WithField("group", prefix)}
	for i := 0; i < n; i++ {
		named := append(append([]Option(nil), opts...), WithName(fmt.Sprintf("%s-%d", prefix, i)))
		if len(o.cpus) > 0 {
			named = append(named, WithCPU(o.cpus[i%len(o.cpus)]))
		}
		l, err := New(named...)
		if err != nil {
			_ = g.Close()
			return nil, err
		}
		g.loops = append(g.loops, l)
	}
	return g, nil
}

// Start runs every loop on its own goroutine. Later calls do nothing.
func (g *LoopGroup) Start() {
	g.start.Do(func() {
		for _, l := range g.loops {
			g.wg.Add(1)
			go func(l *EventLoop) {
				defer g.wg.Done()
				if err := l.Run(); err != nil {
					g.log.WithError(err).WithField("loop", l.Name()).Error("loop exited")
				}
			}(l)
		}
	})
}

// Next returns the next loop in round-robin order, or nil for an empty group.
func (g *LoopGroup) Next() *EventLoop {
	if len(g.loops) == 0 {
		return nil
	}
	idx := (g.next.Add(1) - 1) % uint64(len(g.loops))
	return g.loops[idx]
}

// Loops returns the group's loops.
func (g *LoopGroup) Loops() []*EventLoop { return g.loops }

func (g *LoopGroup) Len() int { return len(g.loops) }

// Close stops every loop, waits for their goroutines and releases descriptors.
func (g *LoopGroup) Close() error {
	var first error
	for _, l := range g.loops {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	g.wg.Wait()
	return first
}
