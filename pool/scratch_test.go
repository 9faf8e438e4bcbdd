package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScratchPool_Reuse(t *testing.T) {
	p := NewScratchPool(128, 2)
	a := p.Get()
	assert.Len(t, a, 128)
	p.Put(a)
	b := p.Get()
	assert.Equal(t, &a[0], &b[0])
	assert.Equal(t, int64(1), p.Allocated())
}

func TestScratchPool_DropsForeignAndOverflow(t *testing.T) {
	p := NewScratchPool(64, 1)
	p.Put(make([]byte, 32))
	p.Put(p.Get())
	p.Put(make([]byte, 64)) // pool already holds one idle slab
	p.Get()
	p.Get()
	assert.Equal(t, int64(2), p.Allocated())
}

func TestScratchPool_Defaults(t *testing.T) {
	p := NewScratchPool(0, 0)
	assert.Equal(t, DefaultScratchSize, p.Size())
}
