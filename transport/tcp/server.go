// File: transport/tcp/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server accepts on a base loop and hands each connection to an I/O loop
// picked round-robin from a LoopGroup. It owns the connection registry:
// a Conn stays reachable from the registry until its close callback runs,
// after which ConnectDestroyed is queued on the Conn's loop.

package tcp

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-conn/api"
	"github.com/momentics/hioload-conn/control"
	"github.com/momentics/hioload-conn/pool"
	"github.com/momentics/hioload-conn/reactor"
)

type Server struct {
	name  string
	cfg   control.Config
	loop  *reactor.EventLoop
	group *reactor.LoopGroup

	listenFd int
	acceptCh *reactor.Channel
	addr     *net.TCPAddr

	started atomic.Bool
	stopped atomic.Bool
	count   atomic.Int64

	// base loop only
	nextConnID int
	conns      map[string]*Conn

	onConnection    ConnectionCallback
	onMessage       MessageCallback
	onWriteComplete WriteCompleteCallback
	onHighWater     HighWaterMarkCallback

	scratch *pool.ScratchPool
	log     *logrus.Entry
	metrics *control.Metrics
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithLoopGroup spreads connections over g. Without it every connection
// lives on the accepting loop.
func WithLoopGroup(g *reactor.LoopGroup) ServerOption {
	return func(s *Server) { s.group = g }
}

func WithServerLogger(log *logrus.Entry) ServerOption {
	return func(s *Server) { s.log = log }
}

func WithServerMetrics(m *control.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer prepares a server named name that will listen on cfg.ListenAddr.
func NewServer(loop *reactor.EventLoop, name string, cfg control.Config, opts ...ServerOption) *Server {
	s := &Server{
		name:         name,
		cfg:          cfg,
		loop:         loop,
		listenFd:     -1,
		conns:        make(map[string]*Conn),
		onConnection: defaultConnectionCallback,
		onMessage:    defaultMessageCallback,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = control.Entry(s.log).WithField("server", name)
	s.scratch = pool.NewScratchPool(cfg.ReadScratchSize, 0)
	return s
}

// Callback setters must be called before Start.
func (s *Server) SetConnectionCallback(cb ConnectionCallback)       { s.onConnection = cb }
func (s *Server) SetMessageCallback(cb MessageCallback)             { s.onMessage = cb }
func (s *Server) SetWriteCompleteCallback(cb WriteCompleteCallback) { s.onWriteComplete = cb }
func (s *Server) SetHighWaterMarkCallback(cb HighWaterMarkCallback) { s.onHighWater = cb }

// Start binds the listening socket and begins accepting on the base loop.
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return api.ErrServerStarted
	}
	addr, err := net.ResolveTCPAddr("tcp", s.cfg.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", s.cfg.ListenAddr)
	}
	fd, err := listenTCP(addr)
	if err != nil {
		return err
	}
	s.listenFd = fd
	s.addr = localAddr(fd)

	s.acceptCh = reactor.NewChannel(s.loop, fd)
	s.acceptCh.SetReadHandler(s.handleAccept)
	s.loop.RunInLoop(s.acceptCh.EnableReading)
	s.log.WithField("addr", s.addr).Info("listening")
	return nil
}

// Addr returns the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	if s.addr == nil {
		return nil
	}
	return s.addr
}

// ConnCount returns the number of registered connections.
func (s *Server) ConnCount() int { return int(s.count.Load()) }

// Stop closes the listener and destroys every registered connection. It
// waits for the base loop to finish unless called on it.
func (s *Server) Stop() {
	if !s.started.Load() || !s.stopped.CompareAndSwap(false, true) {
		return
	}
	done := make(chan struct{})
	s.loop.RunInLoop(func() {
		defer close(done)
		s.acceptCh.DisableAll()
		s.acceptCh.Remove()
		if err := closeFd(s.listenFd); err != nil {
			s.log.WithError(err).Warn("close listener")
		}
		for name, c := range s.conns {
			delete(s.conns, name)
			s.count.Add(-1)
			c.Loop().RunInLoop(c.ConnectDestroyed)
		}
		s.log.Info("stopped")
	})
	if !s.loop.IsInLoop() {
		select {
		case <-done:
		case <-s.loop.Done():
		}
	}
}

func (s *Server) handleAccept(time.Time) {
	fd, peer, err := acceptTCP(s.listenFd)
	if err != nil {
		if api.IsTemporary(err) || errors.Is(err, unix.ECONNABORTED) {
			return
		}
		s.metrics.IOError()
		s.log.WithError(err).Error("accept")
		return
	}
	s.newConnection(fd, peer)
}

func (s *Server) newConnection(fd int, peer *net.TCPAddr) {
	ioLoop := s.loop
	if s.group != nil && s.group.Len() > 0 {
		ioLoop = s.group.Next()
	}
	s.nextConnID++
	name := fmt.Sprintf("%s-%s#%d", s.name, s.addr, s.nextConnID)

	sock := newSocket(fd)
	if err := sock.SetNoDelay(s.cfg.TCPNoDelay); err != nil {
		s.log.WithError(err).Warn("set no delay")
	}
	c := NewConn(ioLoop, name, sock, reactor.NewChannel(ioLoop, fd),
		NewAddrPair(localAddr(fd), peer),
		WithLogger(s.log),
		WithMetrics(s.metrics),
		WithBufferSize(s.cfg.InitialBufferSize),
		WithScratchPool(s.scratch),
	)
	c.SetConnectionCallback(s.onConnection)
	c.SetMessageCallback(s.onMessage)
	c.SetWriteCompleteCallback(s.onWriteComplete)
	c.SetHighWaterMarkCallback(s.onHighWater, s.cfg.HighWaterMark)
	c.SetCloseCallback(s.removeConnection)

	s.conns[name] = c
	s.count.Add(1)
	s.log.WithFields(logrus.Fields{"conn": name, "peer": peer}).Debug("accepted")
	ioLoop.RunInLoop(c.ConnectEstablished)
}

// removeConnection runs on the connection's loop from handleClose.
func (s *Server) removeConnection(c *Conn) {
	s.loop.RunInLoop(func() {
		if _, ok := s.conns[c.Name()]; !ok {
			return
		}
		delete(s.conns, c.Name())
		s.count.Add(-1)
		c.Loop().QueueInLoop(c.ConnectDestroyed)
	})
}
