// File: core/buffer/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ByteBuffer is the growable byte container behind every connection's input
// and output queues. Layout:
//
//	+-------------------+------------------+------------------+
//	| prependable bytes |  readable bytes  |  writable bytes  |
//	+-------------------+------------------+------------------+
//	0            readerIndex        writerIndex             Cap()
//
// A ByteBuffer is not safe for concurrent use; it belongs to one loop thread.

package buffer

import (
	"encoding/binary"
	"fmt"
)

const (
	// CheapPrepend is the prependable space reserved by a fresh buffer.
	CheapPrepend = 8
	// InitialSize is the default writable space of a fresh buffer.
	InitialSize = 1024
)

// ByteBuffer holds a readable region between two cursors over a backing slice.
type ByteBuffer struct {
	buf         []byte
	readerIndex int
	writerIndex int
}

// New creates a buffer with initialSize writable bytes after CheapPrepend.
// A non-positive initialSize selects InitialSize.
func New(initialSize int) *ByteBuffer {
	if initialSize <= 0 {
		initialSize = InitialSize
	}
	return &ByteBuffer{
		buf:         make([]byte, CheapPrepend+initialSize),
		readerIndex: CheapPrepend,
		writerIndex: CheapPrepend,
	}
}

// ReadableBytes returns the length of the readable region.
func (b *ByteBuffer) ReadableBytes() int { return b.writerIndex - b.readerIndex }

// WritableBytes returns the length of the writable region.
func (b *ByteBuffer) WritableBytes() int { return len(b.buf) - b.writerIndex }

// PrependableBytes returns the length of the prependable region.
func (b *ByteBuffer) PrependableBytes() int { return b.readerIndex }

// Cap returns the size of the backing storage.
func (b *ByteBuffer) Cap() int { return len(b.buf) }

// Peek returns the readable region without consuming it. The slice aliases
// the buffer and is only valid until the next mutating call.
func (b *ByteBuffer) Peek() []byte { return b.buf[b.readerIndex:b.writerIndex] }

// Retrieve consumes n readable bytes. It panics if n exceeds ReadableBytes.
func (b *ByteBuffer) Retrieve(n int) {
	if n < 0 || n > b.ReadableBytes() {
		panic(fmt.Sprintf("buffer: retrieve %d of %d readable bytes", n, b.ReadableBytes()))
	}
	b.readerIndex += n
}

// RetrieveAll consumes the whole readable region. The consumed prefix is
// reclaimed later by compaction inside Append, not here.
func (b *ByteBuffer) RetrieveAll() {
	b.readerIndex = b.writerIndex
}

// RetrieveAsString consumes n bytes and returns them as a string.
func (b *ByteBuffer) RetrieveAsString(n int) string {
	if n < 0 || n > b.ReadableBytes() {
		panic(fmt.Sprintf("buffer: retrieve %d of %d readable bytes", n, b.ReadableBytes()))
	}
	s := string(b.buf[b.readerIndex : b.readerIndex+n])
	b.readerIndex += n
	return s
}

// RetrieveAllAsString consumes the readable region and returns it as a string.
func (b *ByteBuffer) RetrieveAllAsString() string {
	return b.RetrieveAsString(b.ReadableBytes())
}

// Append copies data into the writable region, compacting or growing first
// when it does not fit.
func (b *ByteBuffer) Append(data []byte) {
	b.EnsureWritable(len(data))
	b.writerIndex += copy(b.buf[b.writerIndex:], data)
}

// AppendString is Append for strings.
func (b *ByteBuffer) AppendString(s string) {
	b.EnsureWritable(len(s))
	b.writerIndex += copy(b.buf[b.writerIndex:], s)
}

// AppendUint32 appends v in network byte order.
func (b *ByteBuffer) AppendUint32(v uint32) {
	b.EnsureWritable(4)
	binary.BigEndian.PutUint32(b.buf[b.writerIndex:], v)
	b.writerIndex += 4
}

// PeekUint32 decodes a network-order uint32 at the head of the readable region.
func (b *ByteBuffer) PeekUint32() uint32 {
	if b.ReadableBytes() < 4 {
		panic(fmt.Sprintf("buffer: peek uint32 with %d readable bytes", b.ReadableBytes()))
	}
	return binary.BigEndian.Uint32(b.buf[b.readerIndex:])
}

// ReadUint32 decodes and consumes a network-order uint32.
func (b *ByteBuffer) ReadUint32() uint32 {
	v := b.PeekUint32()
	b.readerIndex += 4
	return v
}

// EnsureWritable makes at least n bytes writable.
func (b *ByteBuffer) EnsureWritable(n int) {
	if b.WritableBytes() < n {
		b.makeSpace(n)
	}
}

// WritableSlice returns the writable region for direct filling; commit the
// filled prefix with HasWritten.
func (b *ByteBuffer) WritableSlice() []byte { return b.buf[b.writerIndex:] }

// HasWritten commits n bytes filled through WritableSlice.
func (b *ByteBuffer) HasWritten(n int) {
	if n < 0 || n > b.WritableBytes() {
		panic(fmt.Sprintf("buffer: commit %d of %d writable bytes", n, b.WritableBytes()))
	}
	b.writerIndex += n
}

// Prepend copies data immediately in front of the readable region.
// It panics if the prependable region is too small.
func (b *ByteBuffer) Prepend(data []byte) {
	if len(data) > b.PrependableBytes() {
		panic(fmt.Sprintf("buffer: prepend %d with %d prependable bytes", len(data), b.PrependableBytes()))
	}
	b.readerIndex -= len(data)
	copy(b.buf[b.readerIndex:], data)
}

// PrependUint32 prepends v in network byte order.
func (b *ByteBuffer) PrependUint32(v uint32) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], v)
	b.Prepend(hdr[:])
}

// makeSpace either reclaims the consumed prefix or grows the backing storage.
// Capacity never decreases.
func (b *ByteBuffer) makeSpace(n int) {
	readable := b.ReadableBytes()
	if b.PrependableBytes()+b.WritableBytes() >= n {
		copy(b.buf, b.buf[b.readerIndex:b.writerIndex])
		b.readerIndex = 0
		b.writerIndex = readable
		return
	}
	newCap := 2 * len(b.buf)
	if newCap < b.writerIndex+n {
		newCap = b.writerIndex + n
	}
	grown := make([]byte, newCap)
	copy(grown, b.buf[:b.writerIndex])
	b.buf = grown
}
