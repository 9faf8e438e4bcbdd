// File: transport/tcp/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn is one established TCP stream bound to a dispatch loop.
//
// Lifecycle:
//
//	Connecting --ConnectEstablished--> Connected --Shutdown/ForceClose--> Disconnecting
//	     |                                  |                                  |
//	     +------------ handleClose ---------+------------ handleClose ---------+--> Disconnected
//
// The state is atomically readable from any goroutine; it is written on the
// loop thread only.

package tcp

import (
	"bytes"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-conn/api"
	"github.com/momentics/hioload-conn/control"
	"github.com/momentics/hioload-conn/core/buffer"
	"github.com/momentics/hioload-conn/pool"
)

// DefaultHighWaterMark is the outstanding output that triggers back-pressure.
const DefaultHighWaterMark = 64 << 20

var (
	connSeq        atomic.Uint64
	defaultScratch = pool.NewScratchPool(pool.DefaultScratchSize, 0)
)

type Conn struct {
	id      uint64
	name    string
	loop    api.Dispatcher
	socket  api.Socket
	channel api.Channel
	addrs   AddrPair

	state   atomic.Int32
	reading atomic.Bool

	input  *buffer.ByteBuffer
	output *buffer.ByteBuffer

	highWaterMark      int
	aboveHighWaterMark bool

	connectionCb    ConnectionCallback
	messageCb       MessageCallback
	writeCompleteCb WriteCompleteCallback
	highWaterMarkCb HighWaterMarkCallback
	closeCb         CloseCallback

	ctx atomic.Pointer[contextBox]

	scratch *pool.ScratchPool
	log     *logrus.Entry
	metrics *control.Metrics
}

// ConnOption customizes a Conn at construction.
type ConnOption func(*Conn)

func WithLogger(log *logrus.Entry) ConnOption {
	return func(c *Conn) { c.log = log }
}

func WithMetrics(m *control.Metrics) ConnOption {
	return func(c *Conn) { c.metrics = m }
}

// WithBufferSize sets the initial capacity of both buffers.
func WithBufferSize(n int) ConnOption {
	return func(c *Conn) {
		if n > 0 {
			c.input = buffer.New(n)
			c.output = buffer.New(n)
		}
	}
}

// WithScratchPool sets where reads borrow their overflow area.
func WithScratchPool(p *pool.ScratchPool) ConnOption {
	return func(c *Conn) {
		if p != nil {
			c.scratch = p
		}
	}
}

// NewConn wraps an accepted or connected socket. The connection starts in
// StateConnecting; its owner calls ConnectEstablished on loop to bring it up.
func NewConn(loop api.Dispatcher, name string, sock api.Socket, ch api.Channel, addrs AddrPair, opts ...ConnOption) *Conn {
	c := &Conn{
		id:            connSeq.Add(1),
		name:          name,
		loop:          loop,
		socket:        sock,
		channel:       ch,
		addrs:         addrs,
		input:         buffer.New(buffer.InitialSize),
		output:        buffer.New(buffer.InitialSize),
		highWaterMark: DefaultHighWaterMark,
		connectionCb:  defaultConnectionCallback,
		messageCb:     defaultMessageCallback,
		scratch:       defaultScratch,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = control.Entry(c.log).WithFields(logrus.Fields{"conn": name, "fd": sock.Fd()})
	c.state.Store(int32(StateConnecting))

	ch.SetReadHandler(c.handleRead)
	ch.SetWriteHandler(c.handleWrite)
	ch.SetCloseHandler(c.handleClose)
	ch.SetErrorHandler(c.handleError)
	c.log.Debug("conn created")
	return c
}

// ID is a process-unique connection number.
func (c *Conn) ID() uint64 { return c.id }

func (c *Conn) Name() string { return c.name }

// Loop returns the dispatch loop the connection is bound to.
func (c *Conn) Loop() api.Dispatcher { return c.loop }

func (c *Conn) LocalAddr() net.Addr  { return c.addrs.Local() }
func (c *Conn) RemoteAddr() net.Addr { return c.addrs.Peer() }

func (c *Conn) State() State { return State(c.state.Load()) }

func (c *Conn) Connected() bool    { return c.State() == StateConnected }
func (c *Conn) Disconnected() bool { return c.State() == StateDisconnected }

// IsReading reports whether read interest is registered.
func (c *Conn) IsReading() bool { return c.reading.Load() }

// InputBuffer and OutputBuffer may only be touched on the loop thread.
func (c *Conn) InputBuffer() *buffer.ByteBuffer  { return c.input }
func (c *Conn) OutputBuffer() *buffer.ByteBuffer { return c.output }

// Callback setters are not synchronized; call them before ConnectEstablished.
func (c *Conn) SetConnectionCallback(cb ConnectionCallback) {
	if cb == nil {
		cb = defaultConnectionCallback
	}
	c.connectionCb = cb
}

func (c *Conn) SetMessageCallback(cb MessageCallback) {
	if cb == nil {
		cb = defaultMessageCallback
	}
	c.messageCb = cb
}

func (c *Conn) SetWriteCompleteCallback(cb WriteCompleteCallback) { c.writeCompleteCb = cb }

// SetHighWaterMarkCallback installs cb to fire when outstanding output
// reaches mark bytes.
func (c *Conn) SetHighWaterMarkCallback(cb HighWaterMarkCallback, mark int) {
	c.highWaterMarkCb = cb
	if mark > 0 {
		c.highWaterMark = mark
	}
}

// SetCloseCallback is reserved for the registry owning the connection.
func (c *Conn) SetCloseCallback(cb CloseCallback) { c.closeCb = cb }

// SetTCPNoDelay toggles Nagle's algorithm.
func (c *Conn) SetTCPNoDelay(on bool) error { return c.socket.SetNoDelay(on) }

// TCPInfo renders kernel-level diagnostics of the socket.
func (c *Conn) TCPInfo() (string, error) { return c.socket.Diagnostics() }

func (c *Conn) String() string {
	return fmt.Sprintf("%s[%s %s]", c.name, c.addrs, c.State())
}

// Send queues data for writing. Off the loop thread data is copied first.
func (c *Conn) Send(data []byte) {
	if c.State() != StateConnected {
		c.log.Debug("send on a connection that is not connected")
		return
	}
	if c.loop.IsInLoop() {
		c.sendInLoop(data)
		return
	}
	p := bytes.Clone(data)
	c.loop.QueueInLoop(func() { c.sendInLoop(p) })
}

func (c *Conn) SendString(s string) {
	if c.State() != StateConnected {
		c.log.Debug("send on a connection that is not connected")
		return
	}
	if c.loop.IsInLoop() {
		c.sendInLoop([]byte(s))
		return
	}
	c.loop.QueueInLoop(func() { c.sendInLoop([]byte(s)) })
}

// SendBuffer sends and drains the readable bytes of buf.
func (c *Conn) SendBuffer(buf *buffer.ByteBuffer) {
	if c.State() != StateConnected {
		c.log.Debug("send on a connection that is not connected")
		return
	}
	if c.loop.IsInLoop() {
		c.sendInLoop(buf.Peek())
		buf.RetrieveAll()
		return
	}
	p := bytes.Clone(buf.Peek())
	buf.RetrieveAll()
	c.loop.QueueInLoop(func() { c.sendInLoop(p) })
}

func (c *Conn) sendInLoop(data []byte) {
	if c.State() != StateConnected {
		c.log.Debug("connection left connected state, dropping output")
		return
	}
	written, remaining := 0, len(data)
	fault := false

	// Idle socket: try to skip the output buffer entirely.
	if !c.channel.IsWriting() && c.output.ReadableBytes() == 0 {
		n, err := c.socket.Write(data)
		switch {
		case err == nil:
			written = n
			remaining -= n
			c.metrics.Written(n)
			if remaining == 0 && c.writeCompleteCb != nil {
				c.loop.QueueInLoop(func() { c.writeCompleteCb(c) })
			}
		case api.IsTemporary(err):
		default:
			c.log.WithError(err).Error("write")
			c.metrics.IOError()
			fault = api.IsPeerGone(err)
		}
	}
	if fault || remaining == 0 {
		return
	}

	oldLen := c.output.ReadableBytes()
	total := oldLen + remaining
	if !c.aboveHighWaterMark && oldLen < c.highWaterMark && total >= c.highWaterMark {
		c.aboveHighWaterMark = true
		c.metrics.HighWaterMark()
		if c.highWaterMarkCb != nil {
			c.loop.QueueInLoop(func() { c.highWaterMarkCb(c, total) })
		}
	}
	c.output.Append(data[written:])
	if !c.channel.IsWriting() {
		c.channel.EnableWriting()
	}
}

// Shutdown half-closes the write side once buffered output has drained.
func (c *Conn) Shutdown() {
	c.loop.RunInLoop(func() {
		if c.State() != StateConnected {
			return
		}
		c.setState(StateDisconnecting)
		c.shutdownInLoop()
	})
}

func (c *Conn) shutdownInLoop() {
	if c.channel.IsWriting() {
		return
	}
	if err := c.socket.ShutdownWrite(); err != nil {
		c.log.WithError(err).Error("shutdown write")
	}
}

// ForceClose tears the connection down, discarding buffered output.
func (c *Conn) ForceClose() {
	c.loop.RunInLoop(func() {
		switch c.State() {
		case StateDisconnected:
			return
		case StateConnected:
			c.setState(StateDisconnecting)
		}
		c.loop.QueueInLoop(c.forceCloseInLoop)
	})
}

func (c *Conn) forceCloseInLoop() {
	if c.State() != StateDisconnected {
		c.handleClose()
	}
}

// ForceCloseWithDelay force-closes after delay. The timer rechecks the state
// when it fires, so a connection already gone makes it a no-op.
func (c *Conn) ForceCloseWithDelay(delay time.Duration) {
	if delay <= 0 {
		c.ForceClose()
		return
	}
	c.loop.RunInLoop(func() {
		switch c.State() {
		case StateDisconnected:
			return
		case StateConnected:
			c.setState(StateDisconnecting)
		}
		c.loop.RunAfter(delay, c.ForceClose)
	})
}

// StartRead registers read interest again after StopRead.
func (c *Conn) StartRead() {
	c.loop.RunInLoop(func() {
		if c.State() != StateConnected || c.reading.Load() {
			return
		}
		c.channel.EnableReading()
		c.reading.Store(true)
	})
}

// StopRead withdraws read interest; inbound bytes wait in the kernel.
func (c *Conn) StopRead() {
	c.loop.RunInLoop(func() {
		if c.State() != StateConnected || !c.reading.Load() {
			return
		}
		c.channel.DisableReading()
		c.reading.Store(false)
	})
}

// ConnectEstablished brings the connection up. Its owner calls it exactly
// once, on the loop thread.
func (c *Conn) ConnectEstablished() {
	c.assertInLoop()
	c.setState(StateConnected)
	c.channel.Tie(c)
	c.channel.EnableReading()
	c.reading.Store(true)
	c.metrics.ConnOpened()
	c.log.Debug("connection up")
	c.connectionCb(c)
}

// ConnectDestroyed deregisters the channel and releases the socket. Its
// owner calls it exactly once, on the loop thread, after dropping the
// connection from its registry.
func (c *Conn) ConnectDestroyed() {
	c.assertInLoop()
	if c.State() != StateDisconnected {
		c.setState(StateDisconnected)
		c.channel.DisableAll()
		c.reading.Store(false)
		c.metrics.ConnClosed()
		c.connectionCb(c)
	}
	c.channel.Remove()
	if err := c.socket.Close(); err != nil {
		c.log.WithError(err).Warn("close socket")
	}
	c.log.Debug("connection destroyed")
}

func (c *Conn) handleRead(receiveTime time.Time) {
	scratch := c.scratch.Get()
	defer c.scratch.Put(scratch)

	writable := c.input.WritableSlice()
	n, err := c.socket.Readv([][]byte{writable, scratch})
	switch {
	case err != nil:
		if api.IsTemporary(err) {
			return
		}
		c.log.WithError(err).Error("read")
		c.handleError()
	case n == 0:
		c.handleClose()
	default:
		if n <= len(writable) {
			c.input.HasWritten(n)
		} else {
			c.input.HasWritten(len(writable))
			c.input.Append(scratch[:n-len(writable)])
		}
		c.metrics.Read(n)
		c.messageCb(c, c.input, receiveTime)
	}
}

func (c *Conn) handleWrite() {
	if !c.channel.IsWriting() {
		c.log.Debug("write event with write interest off")
		return
	}
	n, err := c.socket.Write(c.output.Peek())
	if err != nil {
		if !api.IsTemporary(err) {
			c.log.WithError(err).Error("write")
			c.metrics.IOError()
		}
		return
	}
	c.output.Retrieve(n)
	c.metrics.Written(n)
	if c.output.ReadableBytes() > 0 {
		return
	}
	c.channel.DisableWriting()
	c.aboveHighWaterMark = false
	if c.writeCompleteCb != nil {
		c.loop.QueueInLoop(func() { c.writeCompleteCb(c) })
	}
	if c.State() == StateDisconnecting {
		c.shutdownInLoop()
	}
}

// handleClose is the single teardown path. A second call is a no-op.
func (c *Conn) handleClose() {
	if c.State() == StateDisconnected {
		return
	}
	c.setState(StateDisconnected)
	c.channel.DisableAll()
	c.reading.Store(false)
	c.metrics.ConnClosed()
	c.log.Debug("connection down")

	c.connectionCb(c)
	if c.closeCb != nil {
		c.closeCb(c)
	}
}

// handleError only reports; closing is left to handleClose.
func (c *Conn) handleError() {
	err := c.socket.PendingError()
	c.metrics.IOError()
	c.log.WithError(err).Error("socket error")
}

func (c *Conn) setState(next State) {
	cur := c.State()
	if !cur.CanTransition(next) {
		panic(fmt.Sprintf("tcp: %s: illegal transition %s -> %s", c.name, cur, next))
	}
	c.state.Store(int32(next))
}

func (c *Conn) assertInLoop() {
	if !c.loop.IsInLoop() {
		panic(fmt.Sprintf("tcp: %s used off its loop thread", c.name))
	}
}
