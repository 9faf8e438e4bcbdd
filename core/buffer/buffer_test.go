package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewLayout(t *testing.T) {
	b := New(0)
	assert.Equal(t, CheapPrepend+InitialSize, b.Cap())
	assert.Equal(t, 0, b.ReadableBytes())
	assert.Equal(t, InitialSize, b.WritableBytes())
	assert.Equal(t, CheapPrepend, b.PrependableBytes())
}

func TestAppendRetrieve(t *testing.T) {
	b := New(16)
	b.AppendString("hello, world")
	require.Equal(t, 12, b.ReadableBytes())

	b.Retrieve(7)
	assert.Equal(t, "world", string(b.Peek()))
	assert.Equal(t, CheapPrepend+7, b.PrependableBytes())

	assert.Equal(t, "wor", b.RetrieveAsString(3))
	assert.Equal(t, "ld", b.RetrieveAllAsString())
	assert.Equal(t, 0, b.ReadableBytes())
}

func TestRetrieveAllKeepsPrefix(t *testing.T) {
	b := New(16)
	b.AppendString("abcdef")
	b.RetrieveAll()
	assert.Equal(t, CheapPrepend+6, b.PrependableBytes())
	assert.Equal(t, 10, b.WritableBytes())
}

func TestRetrieveTooMuchPanics(t *testing.T) {
	b := New(8)
	b.AppendString("ab")
	assert.Panics(t, func() { b.Retrieve(3) })
	assert.Panics(t, func() { b.RetrieveAsString(3) })
}

func TestAppendCompacts(t *testing.T) {
	b := New(16)
	b.Append(bytes.Repeat([]byte{'x'}, 16))
	b.Retrieve(12)
	capBefore := b.Cap()

	// 4 readable, 0 writable, 20 prependable: 10 more bytes fit after compaction.
	b.AppendString("0123456789")
	assert.Equal(t, capBefore, b.Cap())
	assert.Equal(t, 0, b.PrependableBytes())
	assert.Equal(t, "xxxx0123456789", string(b.Peek()))
}

func TestAppendGrows(t *testing.T) {
	b := New(8)
	b.AppendString("abcd")
	b.Retrieve(2)
	b.Append(bytes.Repeat([]byte{'y'}, 64))

	assert.GreaterOrEqual(t, b.Cap(), CheapPrepend+4+64)
	assert.Equal(t, CheapPrepend+2, b.PrependableBytes())
	assert.Equal(t, "cd"+string(bytes.Repeat([]byte{'y'}, 64)), string(b.Peek()))
}

func TestWritableSliceHasWritten(t *testing.T) {
	b := New(8)
	n := copy(b.WritableSlice(), "abc")
	b.HasWritten(n)
	assert.Equal(t, "abc", string(b.Peek()))
	assert.Panics(t, func() { b.HasWritten(b.WritableBytes() + 1) })
}

func TestPrepend(t *testing.T) {
	b := New(32)
	b.AppendString("payload")
	b.PrependUint32(7)
	assert.Equal(t, CheapPrepend-4, b.PrependableBytes())
	assert.Equal(t, uint32(7), b.ReadUint32())
	assert.Equal(t, "payload", b.RetrieveAllAsString())

	assert.Panics(t, func() { New(8).Prepend(make([]byte, CheapPrepend+1)) })
}

func TestUint32RoundTrip(t *testing.T) {
	b := New(8)
	b.AppendUint32(0xdeadbeef)
	assert.Equal(t, uint32(0xdeadbeef), b.PeekUint32())
	assert.Equal(t, 4, b.ReadableBytes())
	b.Retrieve(2)
	assert.Panics(t, func() { b.PeekUint32() })
}

func TestAppendRetrieveSuffixProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := New(rapid.IntRange(1, 64).Draw(t, "initial"))
		x := rapid.SliceOf(rapid.Byte()).Draw(t, "x")
		k := rapid.IntRange(0, len(x)).Draw(t, "k")

		b.Append(x)
		b.Retrieve(k)
		if !bytes.Equal(b.Peek(), x[k:]) {
			t.Fatalf("readable %q, want %q", b.Peek(), x[k:])
		}
	})
}

// TestBufferModel drives random Append/Retrieve sequences against a plain
// byte slice and checks the cursor invariants after every step.
func TestBufferModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := New(rapid.IntRange(1, 32).Draw(t, "initial"))
		var model []byte
		lastCap := b.Cap()

		t.Repeat(map[string]func(*rapid.T){
			"append": func(t *rapid.T) {
				data := rapid.SliceOfN(rapid.Byte(), 0, 96).Draw(t, "data")
				b.Append(data)
				model = append(model, data...)
			},
			"retrieve": func(t *rapid.T) {
				prepBefore := b.PrependableBytes()
				n := rapid.IntRange(0, len(model)).Draw(t, "n")
				b.Retrieve(n)
				model = model[n:]
				if b.PrependableBytes() != prepBefore+n {
					t.Fatalf("retrieve reclaimed prefix: %d -> %d", prepBefore, b.PrependableBytes())
				}
			},
			"": func(t *rapid.T) {
				if b.readerIndex < 0 || b.readerIndex > b.writerIndex || b.writerIndex > b.Cap() {
					t.Fatalf("cursor invariant broken: r=%d w=%d cap=%d", b.readerIndex, b.writerIndex, b.Cap())
				}
				if b.Cap() < lastCap {
					t.Fatalf("capacity shrank: %d -> %d", lastCap, b.Cap())
				}
				lastCap = b.Cap()
				if !bytes.Equal(b.Peek(), model) {
					t.Fatalf("readable %q, want %q", b.Peek(), model)
				}
			},
		})
	})
}
