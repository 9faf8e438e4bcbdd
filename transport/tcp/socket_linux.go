//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp - Linux socket primitives over x/sys/unix.

package tcp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-conn/api"
)

const listenBacklog = unix.SOMAXCONN

var _ api.Socket = (*socket)(nil)

// socket owns a non-blocking stream descriptor.
type socket struct {
	fd int
}

func newSocket(fd int) *socket { return &socket{fd: fd} }

func (s *socket) Fd() int { return s.fd }

func (s *socket) Readv(iovs [][]byte) (int, error) {
	return unix.Readv(s.fd, iovs)
}

func (s *socket) Write(p []byte) (int, error) {
	n, err := unix.Write(s.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (s *socket) ShutdownWrite() error {
	return errors.Wrap(unix.Shutdown(s.fd, unix.SHUT_WR), "shutdown")
}

func (s *socket) SetNoDelay(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return errors.Wrap(unix.SetsockoptInt(s.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v), "set TCP_NODELAY")
}

func (s *socket) PendingError() error {
	v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return errors.Wrap(err, "get SO_ERROR")
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

// Diagnostics renders TCP_INFO.
func (s *socket) Diagnostics() (string, error) {
	ti, err := unix.GetsockoptTCPInfo(s.fd, unix.IPPROTO_TCP, unix.TCP_INFO)
	if err != nil {
		return "", errors.Wrap(err, "get TCP_INFO")
	}
	return fmt.Sprintf("unrecovered=%d rto=%d ato=%d snd_mss=%d rcv_mss=%d lost=%d retrans=%d rtt=%d rttvar=%d sshthresh=%d cwnd=%d total_retrans=%d",
		ti.Retransmits, ti.Rto, ti.Ato, ti.Snd_mss, ti.Rcv_mss, ti.Lost, ti.Retrans,
		ti.Rtt, ti.Rttvar, ti.Snd_ssthresh, ti.Snd_cwnd, ti.Total_retrans), nil
}

func (s *socket) Close() error { return unix.Close(s.fd) }

func newStreamSocket(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, errors.Wrap(err, "socket")
	}
	return fd, nil
}

// listenTCP binds a non-blocking listening socket with SO_REUSEADDR.
func listenTCP(addr *net.TCPAddr) (int, error) {
	sa, family := tcpToSockaddr(addr)
	fd, err := newStreamSocket(family)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "set SO_REUSEADDR")
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, errors.Wrapf(err, "bind %s", addr)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return -1, errors.Wrapf(err, "listen %s", addr)
	}
	return fd, nil
}

// acceptTCP accepts one pending connection as a non-blocking descriptor.
func acceptTCP(lfd int) (int, *net.TCPAddr, error) {
	nfd, sa, err := unix.Accept4(lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, nil, err
	}
	return nfd, sockaddrToTCP(sa), nil
}

func localAddr(fd int) *net.TCPAddr {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil
	}
	return sockaddrToTCP(sa)
}

func peerAddr(fd int) *net.TCPAddr {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return nil
	}
	return sockaddrToTCP(sa)
}

// dialTCP connects a non-blocking socket, waiting for completion until ctx ends.
func dialTCP(ctx context.Context, addr *net.TCPAddr) (int, error) {
	sa, family := tcpToSockaddr(addr)
	fd, err := newStreamSocket(family)
	if err != nil {
		return -1, err
	}
	err = unix.Connect(fd, sa)
	switch err {
	case nil:
		return fd, nil
	case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
	default:
		unix.Close(fd)
		return -1, errors.Wrapf(err, "connect %s", addr)
	}

	for {
		if err := ctx.Err(); err != nil {
			unix.Close(fd)
			return -1, err
		}
		wait := 100 * time.Millisecond
		if dl, ok := ctx.Deadline(); ok {
			if left := time.Until(dl); left < wait {
				wait = left
			}
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, toPollMillis(wait))
		if err != nil && err != unix.EINTR {
			unix.Close(fd)
			return -1, errors.Wrap(err, "poll connect")
		}
		if n == 0 {
			continue
		}
		soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			unix.Close(fd)
			return -1, errors.Wrap(err, "get SO_ERROR")
		}
		if soerr != 0 {
			unix.Close(fd)
			return -1, errors.Wrapf(unix.Errno(soerr), "connect %s", addr)
		}
		// a self-connect looks established; treat it as a failure
		if la, pa := localAddr(fd), peerAddr(fd); la != nil && pa != nil && la.String() == pa.String() {
			unix.Close(fd)
			return -1, errors.Errorf("connect %s: self connect", addr)
		}
		return fd, nil
	}
}

func toPollMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

func closeFd(fd int) error { return unix.Close(fd) }
