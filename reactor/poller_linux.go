//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const initEventListSize = 16

// poller demultiplexes readiness with level-triggered epoll.
// It is confined to its loop's thread.
type poller struct {
	epfd     int
	events   []unix.EpollEvent
	channels map[int]*Channel
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll create")
	}
	return &poller{
		epfd:     epfd,
		events:   make([]unix.EpollEvent, initEventListSize),
		channels: make(map[int]*Channel),
	}, nil
}

// poll waits up to timeoutMs and appends ready channels to active.
func (p *poller) poll(timeoutMs int, active []*Channel) ([]*Channel, time.Time, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMs)
	now := time.Now()
	if err != nil {
		if err == unix.EINTR {
			return active, now, nil
		}
		return active, now, errors.Wrap(err, "epoll wait")
	}
	for i := 0; i < n; i++ {
		ch, ok := p.channels[int(p.events[i].Fd)]
		if !ok {
			continue
		}
		ch.revents = fromEpoll(p.events[i].Events)
		active = append(active, ch)
	}
	if n == len(p.events) {
		p.events = make([]unix.EpollEvent, 2*len(p.events))
	}
	return active, now, nil
}

func (p *poller) updateChannel(ch *Channel) error {
	switch ch.index {
	case indexNew, indexDeleted:
		if ch.index == indexNew {
			p.channels[ch.fd] = ch
		}
		ch.index = indexAdded
		return p.ctl(unix.EPOLL_CTL_ADD, ch)
	default:
		if ch.IsNoneEvent() {
			ch.index = indexDeleted
			return p.ctl(unix.EPOLL_CTL_DEL, ch)
		}
		return p.ctl(unix.EPOLL_CTL_MOD, ch)
	}
}

func (p *poller) removeChannel(ch *Channel) error {
	delete(p.channels, ch.fd)
	wasAdded := ch.index == indexAdded
	ch.index = indexNew
	if wasAdded {
		return p.ctl(unix.EPOLL_CTL_DEL, ch)
	}
	return nil
}

func (p *poller) hasChannel(ch *Channel) bool {
	got, ok := p.channels[ch.fd]
	return ok && got == ch
}

func (p *poller) ctl(op int, ch *Channel) error {
	ev := unix.EpollEvent{Events: toEpoll(ch.events), Fd: int32(ch.fd)}
	if err := unix.EpollCtl(p.epfd, op, ch.fd, &ev); err != nil {
		return errors.Wrapf(err, "epoll ctl op=%d fd=%d", op, ch.fd)
	}
	return nil
}

func (p *poller) close() error {
	return unix.Close(p.epfd)
}

func toEpoll(ev IOEvents) uint32 {
	var out uint32
	if ev&EventRead != 0 {
		out |= unix.EPOLLIN
	}
	if ev&EventPriority != 0 {
		out |= unix.EPOLLPRI
	}
	if ev&EventWrite != 0 {
		out |= unix.EPOLLOUT
	}
	return out
}

func fromEpoll(ev uint32) IOEvents {
	var out IOEvents
	if ev&unix.EPOLLIN != 0 {
		out |= EventRead
	}
	if ev&unix.EPOLLPRI != 0 {
		out |= EventPriority
	}
	if ev&unix.EPOLLOUT != 0 {
		out |= EventWrite
	}
	if ev&unix.EPOLLERR != 0 {
		out |= EventError
	}
	if ev&unix.EPOLLHUP != 0 {
		out |= EventHangup
	}
	if ev&unix.EPOLLRDHUP != 0 {
		out |= EventPeerClosed
	}
	return out
}
