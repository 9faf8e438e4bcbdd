//go:build !linux
// +build !linux

// File: reactor/poller_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"time"

	"github.com/momentics/hioload-conn/api"
)

type poller struct{}

func newPoller() (*poller, error) { return nil, api.ErrNotSupported }

func (p *poller) poll(int, []*Channel) ([]*Channel, time.Time, error) {
	return nil, time.Now(), api.ErrNotSupported
}
func (p *poller) updateChannel(*Channel) error { return api.ErrNotSupported }
func (p *poller) removeChannel(*Channel) error { return api.ErrNotSupported }
func (p *poller) hasChannel(*Channel) bool     { return false }
func (p *poller) close() error                 { return nil }

func newWakeFd() (int, error) { return -1, api.ErrNotSupported }
func closeWakeFd(int) error   { return nil }
func signalWakeFd(int) error  { return api.ErrNotSupported }
func drainWakeFd(int) error   { return api.ErrNotSupported }
func currentThreadID() int64  { return -1 }
