// Author: momentics <momentics@gmail.com>

package fake

import (
	"bytes"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-conn/api"
)

var _ api.Socket = (*Socket)(nil)

// Socket is a scripted api.Socket. Inbound bytes come from Feed, writes are
// accepted up to a budget and then refused with EAGAIN.
type Socket struct {
	mu sync.Mutex
	fd int

	in      []byte
	eof     bool
	readErr error

	out         bytes.Buffer
	budget      int // -1 is unlimited
	writeErr    error
	writeCalls  int
	shutdown    bool
	noDelay     bool
	closed      bool
	pendingErr  error
	diagnostics string
}

// NewSocket returns a socket with an unlimited write budget.
func NewSocket(fd int) *Socket {
	return &Socket{fd: fd, budget: -1, diagnostics: "fake"}
}

func (s *Socket) Fd() int { return s.fd }

// Feed queues inbound bytes.
func (s *Socket) Feed(p []byte) {
	s.mu.Lock()
	s.in = append(s.in, p...)
	s.mu.Unlock()
}

// FeedEOF makes reads return 0 once queued bytes are consumed.
func (s *Socket) FeedEOF() {
	s.mu.Lock()
	s.eof = true
	s.mu.Unlock()
}

// FailRead makes the next read return err.
func (s *Socket) FailRead(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

func (s *Socket) Readv(iovs [][]byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		err := s.readErr
		s.readErr = nil
		return 0, err
	}
	if len(s.in) == 0 {
		if s.eof {
			return 0, nil
		}
		return 0, unix.EAGAIN
	}
	n := 0
	for _, iov := range iovs {
		c := copy(iov, s.in[n:])
		n += c
		if n == len(s.in) {
			break
		}
	}
	s.in = s.in[n:]
	return n, nil
}

// SetWriteBudget limits how many more bytes writes accept; -1 lifts the limit.
func (s *Socket) SetWriteBudget(n int) {
	s.mu.Lock()
	s.budget = n
	s.mu.Unlock()
}

// FailWrite makes every write return err until cleared with nil.
func (s *Socket) FailWrite(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

func (s *Socket) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeCalls++
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	n := len(p)
	if s.budget >= 0 {
		if s.budget == 0 {
			return 0, unix.EAGAIN
		}
		if n > s.budget {
			n = s.budget
		}
		s.budget -= n
	}
	s.out.Write(p[:n])
	return n, nil
}

// Written returns everything accepted by Write so far.
func (s *Socket) Written() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.String()
}

// WriteCalls returns how many times Write was invoked.
func (s *Socket) WriteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCalls
}

func (s *Socket) ShutdownWrite() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	return nil
}

// IsShutdown reports whether ShutdownWrite was called.
func (s *Socket) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *Socket) SetNoDelay(on bool) error {
	s.mu.Lock()
	s.noDelay = on
	s.mu.Unlock()
	return nil
}

func (s *Socket) NoDelay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noDelay
}

// SetPendingError arms the value returned by the next PendingError.
func (s *Socket) SetPendingError(err error) {
	s.mu.Lock()
	s.pendingErr = err
	s.mu.Unlock()
}

func (s *Socket) PendingError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.pendingErr
	s.pendingErr = nil
	return err
}

func (s *Socket) Diagnostics() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagnostics, nil
}

func (s *Socket) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Socket) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
