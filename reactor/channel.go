// File: reactor/channel.go
// Author: momentics <momentics@gmail.com>
//
// Channel is the registration of one descriptor with one EventLoop: which
// readiness events are of interest and which handlers run when they fire.
// A Channel never owns its descriptor.

package reactor

import (
	"runtime"
	"time"

	"github.com/momentics/hioload-conn/api"
)

// IOEvents is a bit set of readiness conditions.
type IOEvents uint32

const (
	EventRead IOEvents = 1 << iota
	EventPriority
	EventWrite
	EventError
	EventHangup
	EventPeerClosed
)

const (
	noneEvents  IOEvents = 0
	readEvents           = EventRead | EventPriority
	writeEvents          = EventWrite
)

// poller bookkeeping of a channel
const (
	indexNew     = -1
	indexAdded   = 1
	indexDeleted = 2
)

var _ api.Channel = (*Channel)(nil)

// Channel dispatches readiness events of one descriptor.
type Channel struct {
	loop    *EventLoop
	fd      int
	events  IOEvents // interest
	revents IOEvents // delivered by the poller
	index   int

	tie  any
	tied bool

	eventHandling bool
	addedToLoop   bool

	readHandler  func(time.Time)
	writeHandler func()
	closeHandler func()
	errorHandler func()
}

// NewChannel creates an unregistered channel for fd on loop.
func NewChannel(loop *EventLoop, fd int) *Channel {
	return &Channel{loop: loop, fd: fd, index: indexNew}
}

func (c *Channel) Fd() int { return c.fd }

func (c *Channel) SetReadHandler(fn func(time.Time)) { c.readHandler = fn }
func (c *Channel) SetWriteHandler(fn func())         { c.writeHandler = fn }
func (c *Channel) SetCloseHandler(fn func())         { c.closeHandler = fn }
func (c *Channel) SetErrorHandler(fn func())         { c.errorHandler = fn }

// Tie binds the channel to owner. Dispatch holds owner for the duration of
// every handler call and stops dispatching once Remove has released it.
func (c *Channel) Tie(owner any) {
	c.tie = owner
	c.tied = true
}

func (c *Channel) EnableReading()  { c.events |= readEvents; c.update() }
func (c *Channel) DisableReading() { c.events &^= readEvents; c.update() }
func (c *Channel) EnableWriting()  { c.events |= writeEvents; c.update() }
func (c *Channel) DisableWriting() { c.events &^= writeEvents; c.update() }
func (c *Channel) DisableAll()     { c.events = noneEvents; c.update() }

func (c *Channel) IsReading() bool   { return c.events&readEvents != 0 }
func (c *Channel) IsWriting() bool   { return c.events&writeEvents != 0 }
func (c *Channel) IsNoneEvent() bool { return c.events == noneEvents }

// Remove deregisters the channel and drops its tie.
func (c *Channel) Remove() {
	if !c.IsNoneEvent() {
		panic("reactor: removing a channel with registered interest")
	}
	c.addedToLoop = false
	c.loop.removeChannel(c)
	c.tie = nil
}

func (c *Channel) update() {
	c.addedToLoop = true
	c.loop.updateChannel(c)
}

// handleEvent runs on the loop thread for every poll result naming c.
func (c *Channel) handleEvent(receiveTime time.Time) {
	if !c.tied {
		c.dispatch(receiveTime)
		return
	}
	guard := c.tie
	if guard == nil {
		return
	}
	c.dispatch(receiveTime)
	runtime.KeepAlive(guard)
}

func (c *Channel) dispatch(receiveTime time.Time) {
	c.eventHandling = true
	defer func() { c.eventHandling = false }()

	rev := c.revents
	if rev&EventHangup != 0 && rev&EventRead == 0 {
		if c.closeHandler != nil {
			c.closeHandler()
		}
	}
	if rev&EventError != 0 {
		if c.errorHandler != nil {
			c.errorHandler()
		}
	}
	if rev&(EventRead|EventPriority|EventPeerClosed) != 0 {
		if c.readHandler != nil {
			c.readHandler(receiveTime)
		}
	}
	if rev&EventWrite != 0 {
		if c.writeHandler != nil {
			c.writeHandler()
		}
	}
}
