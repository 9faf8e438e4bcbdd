// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Contracts between a connection and the dispatch loop that owns it.
// A loop runs on exactly one thread; everything registered with it is
// confined to that thread.

package api

import "time"

// Dispatcher is the single-threaded dispatch loop seen from a connection.
type Dispatcher interface {
	// IsInLoop reports whether the caller runs on the loop's owning thread.
	IsInLoop() bool

	// RunInLoop runs task immediately when called on the owning thread,
	// otherwise it behaves like QueueInLoop.
	RunInLoop(task func())

	// QueueInLoop appends task to the loop's pending FIFO. The task runs on
	// the owning thread after the current poll iteration's handlers.
	QueueInLoop(task func())

	// RunAfter runs task once on the owning thread after delay.
	RunAfter(delay time.Duration, task func())
}

// Channel is the per-descriptor readiness registration of one loop.
// All methods except the handler setters must be called on the owning thread.
type Channel interface {
	SetReadHandler(fn func(receiveTime time.Time))
	SetWriteHandler(fn func())
	SetCloseHandler(fn func())
	SetErrorHandler(fn func())

	// Tie binds the channel to owner. While tied, every dispatch keeps a
	// strong reference to owner until the handler returns.
	Tie(owner any)

	EnableReading()
	DisableReading()
	EnableWriting()
	DisableWriting()
	DisableAll()

	IsReading() bool
	IsWriting() bool
	IsNoneEvent() bool

	// Remove deregisters the channel from its loop. Interest must already
	// be cleared with DisableAll.
	Remove()
}
