// File: transport/tcp/callbacks.go
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"time"

	"github.com/momentics/hioload-conn/core/buffer"
)

// ConnectionCallback fires when a connection comes up and when it goes down.
type ConnectionCallback func(c *Conn)

// MessageCallback receives the input buffer after every successful read.
// Bytes left unretrieved stay in the buffer for the next call.
type MessageCallback func(c *Conn, in *buffer.ByteBuffer, receiveTime time.Time)

// WriteCompleteCallback fires once the output buffer has fully drained.
type WriteCompleteCallback func(c *Conn)

// HighWaterMarkCallback fires when outstanding output crosses the mark.
type HighWaterMarkCallback func(c *Conn, outstanding int)

// CloseCallback lets the owning registry drop its reference.
type CloseCallback func(c *Conn)

func defaultConnectionCallback(c *Conn) {
	c.log.WithField("state", c.State()).Debugf("%s", c.addrs)
}

func defaultMessageCallback(_ *Conn, in *buffer.ByteBuffer, _ time.Time) {
	in.RetrieveAll()
}
