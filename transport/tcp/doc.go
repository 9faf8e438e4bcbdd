// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements the connection core: Conn, the per-socket state
// machine that turns readiness events into ordered byte streams with
// buffered partial I/O and high-water-mark back-pressure, plus a Server
// acceptor and a Dialer that own connections through a registry.
//
// A Conn is bound to one dispatch loop for its whole life. Its public
// methods may be called from any goroutine; mutation is marshaled onto the
// loop thread, so a Conn needs no lock of its own.
package tcp
