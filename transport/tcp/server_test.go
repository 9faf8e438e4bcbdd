//go:build linux

package tcp

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-conn/api"
	"github.com/momentics/hioload-conn/control"
	"github.com/momentics/hioload-conn/core/buffer"
	"github.com/momentics/hioload-conn/reactor"
)

func runLoop(t *testing.T) *reactor.EventLoop {
	t.Helper()
	l, err := reactor.New(reactor.WithPollTimeout(50 * time.Millisecond))
	require.NoError(t, err)
	go func() { _ = l.Run() }()
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func startEchoServer(t *testing.T, loops int) *Server {
	t.Helper()
	base := runLoop(t)
	group, err := reactor.NewLoopGroup("io", loops)
	require.NoError(t, err)
	group.Start()
	t.Cleanup(func() { _ = group.Close() })

	cfg := control.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	srv := NewServer(base, "echo", cfg, WithLoopGroup(group))
	srv.SetMessageCallback(func(c *Conn, in *buffer.ByteBuffer, _ time.Time) {
		c.SendBuffer(in)
	})
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func TestServer_Echo(t *testing.T) {
	srv := startEchoServer(t, 2)
	require.NotNil(t, srv.Addr())
	assert.ErrorIs(t, srv.Start(), api.ErrServerStarted)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		i := i
		g.Go(func() error {
			nc, err := net.DialTimeout("tcp", srv.Addr().String(), 5*time.Second)
			if err != nil {
				return err
			}
			defer nc.Close()
			_ = nc.SetDeadline(time.Now().Add(5 * time.Second))
			msg := fmt.Sprintf("hello-%d", i)
			if _, err := nc.Write([]byte(msg)); err != nil {
				return err
			}
			got := make([]byte, len(msg))
			if _, err := io.ReadFull(nc, got); err != nil {
				return err
			}
			if string(got) != msg {
				return fmt.Errorf("echo mismatch: %q != %q", got, msg)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Eventually(t, func() bool { return srv.ConnCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestServer_ConnectionCallbacks(t *testing.T) {
	base := runLoop(t)
	cfg := control.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	srv := NewServer(base, "cb", cfg)

	var mu sync.Mutex
	var states []State
	up := make(chan *Conn, 1)
	down := make(chan struct{})
	srv.SetConnectionCallback(func(c *Conn) {
		mu.Lock()
		states = append(states, c.State())
		mu.Unlock()
		if c.Connected() {
			up <- c
		} else {
			close(down)
		}
	})
	require.NoError(t, srv.Start())
	defer srv.Stop()

	nc, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer nc.Close()

	var c *Conn
	select {
	case c = <-up:
	case <-time.After(5 * time.Second):
		t.Fatal("connection never came up")
	}
	assert.Equal(t, 1, srv.ConnCount())
	assert.Equal(t, nc.LocalAddr().String(), c.RemoteAddr().String())
	info, err := c.TCPInfo()
	require.NoError(t, err)
	assert.Contains(t, info, "rtt=")

	c.ForceClose()
	select {
	case <-down:
	case <-time.After(5 * time.Second):
		t.Fatal("connection never went down")
	}
	_ = nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = nc.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)

	mu.Lock()
	assert.Equal(t, []State{StateConnected, StateDisconnected}, states)
	mu.Unlock()
	require.Eventually(t, func() bool { return srv.ConnCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestDialer_SendsInOrderFromForeignGoroutine(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		b, _ := io.ReadAll(nc)
		received <- string(b)
	}()

	loop := runLoop(t)
	up := make(chan struct{})
	d := &Dialer{
		Loop:    loop,
		NoDelay: true,
		OnConnection: func(c *Conn) {
			if c.Connected() {
				close(up)
			}
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := d.Dial(ctx, ln.Addr().String())
	require.NoError(t, err)
	<-up

	c.SendString("AB")
	c.SendString("CD")
	c.Shutdown()

	select {
	case got := <-received:
		assert.Equal(t, "ABCD", got)
	case <-time.After(5 * time.Second):
		t.Fatal("peer never saw EOF")
	}
	c.ForceClose()
	require.Eventually(t, c.Disconnected, 5*time.Second, 10*time.Millisecond)
}

func TestDialer_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	d := &Dialer{Loop: runLoop(t)}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = d.Dial(ctx, addr)
	assert.Error(t, err)
}
