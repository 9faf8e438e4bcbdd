package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_RunsAllTasks(t *testing.T) {
	e := NewExecutor(4, 8, nil)
	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		require.NoError(t, e.Submit(func() {
			defer wg.Done()
			n.Add(1)
		}))
	}
	wg.Wait()
	e.Close()
	assert.Equal(t, int64(1000), n.Load())
	assert.Equal(t, 4, e.NumWorkers())
}

func TestExecutor_KeyedOrder(t *testing.T) {
	e := NewExecutor(3, 4, nil)
	defer e.Close()

	const keys, perKey = 5, 200
	var mu sync.Mutex
	seen := make(map[uint64][]int, keys)
	var wg sync.WaitGroup
	for i := 0; i < perKey; i++ {
		for k := uint64(0); k < keys; k++ {
			wg.Add(1)
			k, i := k, i
			require.NoError(t, e.SubmitKeyed(k, func() {
				defer wg.Done()
				mu.Lock()
				seen[k] = append(seen[k], i)
				mu.Unlock()
			}))
		}
	}
	wg.Wait()
	for k := uint64(0); k < keys; k++ {
		require.Len(t, seen[k], perKey)
		for i, v := range seen[k] {
			require.Equal(t, i, v, "key %d", k)
		}
	}
}

func TestExecutor_PanicDoesNotKillWorker(t *testing.T) {
	e := NewExecutor(1, 2, nil)
	defer e.Close()

	require.NoError(t, e.Submit(func() { panic("boom") }))
	done := make(chan struct{})
	require.NoError(t, e.Submit(func() { close(done) }))
	<-done
}

func TestExecutor_SubmitAfterClose(t *testing.T) {
	e := NewExecutor(2, 2, nil)
	e.Close()
	e.Close()
	assert.ErrorIs(t, e.Submit(func() {}), ErrExecutorClosed)
	assert.ErrorIs(t, e.SubmitKeyed(1, func() {}), ErrExecutorClosed)
}
