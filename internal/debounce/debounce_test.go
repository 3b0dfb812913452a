package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedule_RunsAfterDelay(t *testing.T) {
	d := New(20 * time.Millisecond)
	var calls atomic.Int32

	d.Schedule(func() { calls.Add(1) })
	assert.True(t, d.Pending())
	assert.Equal(t, int32(0), calls.Load())

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, d.Pending())
}

func TestSchedule_ReplacesPendingTask(t *testing.T) {
	d := New(30 * time.Millisecond)
	var first, second atomic.Int32

	d.Schedule(func() { first.Add(1) })
	d.Schedule(func() { second.Add(1) })

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestCancel(t *testing.T) {
	d := New(10 * time.Millisecond)
	var calls atomic.Int32

	d.Schedule(func() { calls.Add(1) })
	d.Cancel()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, d.Pending())
}

func TestFlush(t *testing.T) {
	d := New(time.Hour)
	var calls atomic.Int32

	assert.False(t, d.Flush())

	d.Schedule(func() { calls.Add(1) })
	assert.True(t, d.Flush())
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
	assert.False(t, d.Flush())
}

func TestFlush_WaitsForTaskAlreadyStartedByTimer(t *testing.T) {
	d := New(time.Millisecond)
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	d.Schedule(func() {
		close(started)
		<-release
		finished.Store(true)
	})
	<-started

	flushed := make(chan bool, 1)
	go func() { flushed <- d.Flush() }()

	select {
	case <-flushed:
		t.Fatal("Flush returned while the timer's task was still running")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	select {
	case ran := <-flushed:
		assert.True(t, ran)
		assert.True(t, finished.Load())
	case <-time.After(time.Second):
		t.Fatal("Flush did not return after the task finished")
	}
	assert.False(t, d.Flush())
}

func TestStop_RefusesSchedules(t *testing.T) {
	d := New(10 * time.Millisecond)
	var calls atomic.Int32

	d.Stop()
	d.Schedule(func() { calls.Add(1) })

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, d.Pending())
}
