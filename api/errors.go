// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values and error classification for hioload-conn.

package api

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Common errors used across the library.
var (
	ErrNotSupported   = errors.New("operation not supported on this platform")
	ErrLoopStarted    = errors.New("event loop already started")
	ErrLoopClosed     = errors.New("event loop is closed")
	ErrExecutorClosed = errors.New("executor is closed")
	ErrServerStarted  = errors.New("server already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// IsTemporary reports whether err is a would-block or interrupted condition
// that non-blocking I/O should retry on the next readiness event.
func IsTemporary(err error) bool {
	return errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.EWOULDBLOCK) ||
		errors.Is(err, unix.EINTR)
}

// IsPeerGone reports whether err means the peer has already torn the stream
// down, so further writes are pointless.
func IsPeerGone(err error) bool {
	return errors.Is(err, unix.EPIPE) || errors.Is(err, unix.ECONNRESET)
}
