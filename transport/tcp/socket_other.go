//go:build !linux
// +build !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp - stubs for platforms without an epoll backend.

package tcp

import (
	"context"
	"net"

	"github.com/momentics/hioload-conn/api"
)

type socket struct{ fd int }

func newSocket(fd int) *socket { return &socket{fd: fd} }

func (s *socket) Fd() int                      { return s.fd }
func (s *socket) Readv([][]byte) (int, error)  { return 0, api.ErrNotSupported }
func (s *socket) Write([]byte) (int, error)    { return 0, api.ErrNotSupported }
func (s *socket) ShutdownWrite() error         { return api.ErrNotSupported }
func (s *socket) SetNoDelay(bool) error        { return api.ErrNotSupported }
func (s *socket) PendingError() error          { return nil }
func (s *socket) Diagnostics() (string, error) { return "", api.ErrNotSupported }
func (s *socket) Close() error                 { return nil }

func listenTCP(*net.TCPAddr) (int, error)                { return -1, api.ErrNotSupported }
func acceptTCP(int) (int, *net.TCPAddr, error)           { return -1, nil, api.ErrNotSupported }
func localAddr(int) *net.TCPAddr                         { return nil }
func peerAddr(int) *net.TCPAddr                          { return nil }
func dialTCP(context.Context, *net.TCPAddr) (int, error) { return -1, api.ErrNotSupported }
func closeFd(int) error                                  { return nil }
