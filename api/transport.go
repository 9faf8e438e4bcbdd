// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the non-blocking socket primitives a connection drives.

package api

// Socket wraps a connected, non-blocking stream descriptor.
//
// Read and write calls return the raw errno on failure so callers can
// classify it with IsTemporary / IsPeerGone.
type Socket interface {
	// Fd returns the underlying file descriptor.
	Fd() int

	// Readv performs one scatter read into iovs. A zero count with a nil
	// error means the peer closed its write side.
	Readv(iovs [][]byte) (n int, err error)

	// Write performs one write call and returns how much was accepted.
	Write(p []byte) (n int, err error)

	// ShutdownWrite half-closes the outbound direction.
	ShutdownWrite() error

	// SetNoDelay toggles Nagle's algorithm.
	SetNoDelay(on bool) error

	// PendingError fetches and clears the socket's pending error (SO_ERROR).
	PendingError() error

	// Diagnostics renders kernel-level connection info for logs.
	Diagnostics() (string, error)

	// Close releases the descriptor.
	Close() error
}
