// Author: momentics <momentics@gmail.com>

package fake

import (
	"time"

	"github.com/momentics/hioload-conn/api"
)

var _ api.Channel = (*Channel)(nil)

// Channel records interest changes and fires handlers on demand.
type Channel struct {
	reading bool
	writing bool
	removed bool

	tie  any
	tied bool

	// Updates counts interest changes pushed to the (absent) poller.
	Updates int

	read  func(time.Time)
	write func()
	close func()
	err   func()
}

func NewChannel() *Channel { return &Channel{} }

func (c *Channel) SetReadHandler(fn func(time.Time)) { c.read = fn }
func (c *Channel) SetWriteHandler(fn func())         { c.write = fn }
func (c *Channel) SetCloseHandler(fn func())         { c.close = fn }
func (c *Channel) SetErrorHandler(fn func())         { c.err = fn }

func (c *Channel) Tie(owner any) { c.tie, c.tied = owner, true }

func (c *Channel) EnableReading()  { c.reading = true; c.Updates++ }
func (c *Channel) DisableReading() { c.reading = false; c.Updates++ }
func (c *Channel) EnableWriting()  { c.writing = true; c.Updates++ }
func (c *Channel) DisableWriting() { c.writing = false; c.Updates++ }
func (c *Channel) DisableAll()     { c.reading, c.writing = false, false; c.Updates++ }

func (c *Channel) IsReading() bool   { return c.reading }
func (c *Channel) IsWriting() bool   { return c.writing }
func (c *Channel) IsNoneEvent() bool { return !c.reading && !c.writing }

func (c *Channel) Remove() {
	if !c.IsNoneEvent() {
		panic("fake: removing a channel with registered interest")
	}
	c.removed = true
	c.tie = nil
}

// Removed reports whether Remove was called.
func (c *Channel) Removed() bool { return c.removed }

// Owner returns the tied owner, nil once removed.
func (c *Channel) Owner() any { return c.tie }

// FireRead invokes the read handler as a readable event would.
func (c *Channel) FireRead() { c.fire(func() { c.read(time.Now()) }, c.read != nil) }

// FireWrite invokes the write handler as a writable event would.
func (c *Channel) FireWrite() { c.fire(c.write, c.write != nil) }

// FireClose invokes the close handler as a hang-up would.
func (c *Channel) FireClose() { c.fire(c.close, c.close != nil) }

// FireError invokes the error handler.
func (c *Channel) FireError() { c.fire(c.err, c.err != nil) }

func (c *Channel) fire(fn func(), ok bool) {
	if !ok || (c.tied && c.tie == nil) {
		return
	}
	fn()
}
