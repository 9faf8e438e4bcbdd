// File: pool/scratch.go
// Package pool
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ScratchPool recycles the fixed-size overflow areas used by scatter reads.
// A read borrows one slab for the duration of a single readv call, so the
// pool only needs as many slabs as there are loops reading concurrently.

package pool

import "sync/atomic"

// DefaultScratchSize is the overflow area of one scatter read.
const DefaultScratchSize = 64 << 10

// ScratchPool is a channel-backed free list of equally sized byte slabs.
type ScratchPool struct {
	size  int
	free  chan []byte
	alloc atomic.Int64
}

// NewScratchPool creates a pool of size-byte slabs retaining at most keep idle slabs.
func NewScratchPool(size, keep int) *ScratchPool {
	if size <= 0 {
		size = DefaultScratchSize
	}
	if keep <= 0 {
		keep = 64
	}
	return &ScratchPool{size: size, free: make(chan []byte, keep)}
}

// Get returns a slab of exactly Size bytes.
func (p *ScratchPool) Get() []byte {
	select {
	case b := <-p.free:
		return b
	default:
		p.alloc.Add(1)
		return make([]byte, p.size)
	}
}

// Put returns a slab obtained from Get. Foreign-sized slices are dropped.
func (p *ScratchPool) Put(b []byte) {
	if cap(b) != p.size {
		return
	}
	select {
	case p.free <- b[:p.size]:
	default:
	}
}

// Size returns the slab size.
func (p *ScratchPool) Size() int { return p.size }

// Allocated returns how many slabs were ever allocated.
func (p *ScratchPool) Allocated() int64 { return p.alloc.Load() }
