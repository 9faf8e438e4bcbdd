// File: transport/tcp/dial.go
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-conn/control"
	"github.com/momentics/hioload-conn/reactor"
)

var dialSeq atomic.Uint64

// Dialer opens client connections bound to Loop. It acts as the registry of
// each connection it creates: when the connection closes, the Dialer queues
// its ConnectDestroyed.
type Dialer struct {
	Loop    *reactor.EventLoop
	Name    string
	NoDelay bool

	OnConnection    ConnectionCallback
	OnMessage       MessageCallback
	OnWriteComplete WriteCompleteCallback
	OnHighWaterMark HighWaterMarkCallback
	HighWaterMark   int

	Logger  *logrus.Entry
	Metrics *control.Metrics
}

// Dial connects to addr and returns the connection once the connect has
// completed. ConnectEstablished is queued on d.Loop, so callbacks may fire
// before or after Dial returns.
func (d *Dialer) Dial(ctx context.Context, addr string) (*Conn, error) {
	if d.Loop == nil {
		return nil, errors.New("tcp: dialer has no loop")
	}
	raddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", addr)
	}
	fd, err := dialTCP(ctx, raddr)
	if err != nil {
		return nil, err
	}

	sock := newSocket(fd)
	if d.NoDelay {
		if err := sock.SetNoDelay(true); err != nil {
			_ = sock.Close()
			return nil, err
		}
	}
	name := d.Name
	if name == "" {
		name = "client"
	}
	name = fmt.Sprintf("%s-%s#%d", name, raddr, dialSeq.Add(1))

	c := NewConn(d.Loop, name, sock, reactor.NewChannel(d.Loop, fd),
		NewAddrPair(localAddr(fd), peerAddr(fd)),
		WithLogger(d.Logger),
		WithMetrics(d.Metrics),
	)
	c.SetConnectionCallback(d.OnConnection)
	c.SetMessageCallback(d.OnMessage)
	c.SetWriteCompleteCallback(d.OnWriteComplete)
	c.SetHighWaterMarkCallback(d.OnHighWaterMark, d.HighWaterMark)
	c.SetCloseCallback(func(c *Conn) {
		c.Loop().QueueInLoop(c.ConnectDestroyed)
	})
	d.Loop.RunInLoop(c.ConnectEstablished)
	return c, nil
}
