// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the single-threaded dispatch loop: an epoll poller,
// per-descriptor Channels, a pending-task FIFO for marshaling work from
// foreign goroutines, and one-shot timers. Each EventLoop pins itself to one
// OS thread while running; everything registered with it is confined there.
package reactor
