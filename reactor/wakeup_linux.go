//go:build linux

// File: reactor/wakeup_linux.go
// Author: momentics <momentics@gmail.com>
//
// eventfd(2) used to interrupt a blocked epoll_wait and to identify the
// owning OS thread of a loop.

package reactor

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func newWakeFd() (int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return -1, errors.Wrap(err, "eventfd")
	}
	return fd, nil
}

func closeWakeFd(fd int) error { return unix.Close(fd) }

func signalWakeFd(fd int) error {
	var one [8]byte
	binary.LittleEndian.PutUint64(one[:], 1)
	_, err := unix.Write(fd, one[:])
	if err == unix.EAGAIN {
		// counter saturated; the loop is already awake
		return nil
	}
	return err
}

func drainWakeFd(fd int) error {
	var buf [8]byte
	_, err := unix.Read(fd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// currentThreadID returns the kernel id of the calling OS thread. A loop
// locks its goroutine to its thread, so a match means "on the loop goroutine".
func currentThreadID() int64 { return int64(unix.Gettid()) }
