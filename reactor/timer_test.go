package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestTimerQueue_NextTimeout(t *testing.T) {
	var q timerQueue
	now := time.Now()
	assert.Equal(t, time.Second, q.nextTimeout(now, time.Second))

	q.add(now.Add(300*time.Millisecond), func() {})
	assert.Equal(t, 300*time.Millisecond, q.nextTimeout(now, time.Second))
	assert.Equal(t, 100*time.Millisecond, q.nextTimeout(now, 100*time.Millisecond))
	assert.Equal(t, time.Duration(0), q.nextTimeout(now.Add(time.Second), time.Second))
}

func TestTimerQueue_PopExpiredKeepsScheduleOrder(t *testing.T) {
	var q timerQueue
	now := time.Now()
	var got []string
	q.add(now.Add(2*time.Millisecond), func() { got = append(got, "c") })
	q.add(now, func() { got = append(got, "a") })
	q.add(now, func() { got = append(got, "b") })
	q.add(now.Add(time.Hour), func() { got = append(got, "never") })

	for _, tm := range q.popExpired(now.Add(2 * time.Millisecond)) {
		tm.task()
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 1, q.len())
}

func TestTimerQueue_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var q timerQueue
		base := time.Now()
		offsets := rapid.SliceOf(rapid.IntRange(0, 1000)).Draw(t, "offsets")
		for _, off := range offsets {
			q.add(base.Add(time.Duration(off)*time.Millisecond), nil)
		}
		cut := rapid.IntRange(0, 1000).Draw(t, "cut")
		due := q.popExpired(base.Add(time.Duration(cut) * time.Millisecond))

		want := 0
		for _, off := range offsets {
			if off <= cut {
				want++
			}
		}
		require.Len(t, due, want)
		for i := 1; i < len(due); i++ {
			if due[i].when.Before(due[i-1].when) {
				t.Fatalf("timer %d due before timer %d", i, i-1)
			}
		}
		if q.len() > 0 && !q.heap[0].when.After(base.Add(time.Duration(cut)*time.Millisecond)) {
			t.Fatalf("expired timer left in queue")
		}
	})
}
