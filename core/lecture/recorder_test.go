package lecture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-live/core"
)

func TestRecorder(t *testing.T) {
	rec := NewRecorder(core.NopLogger, 64, 2, time.Second)

	var ran, failed int32
	for i := 0; i < 10; i++ {
		ok := rec.Submit("l1", "count", func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
		assert.True(t, ok)
	}
	assert.True(t, rec.Submit("l2", "fail", func(ctx context.Context) error {
		atomic.AddInt32(&failed, 1)
		return errors.New("db down")
	}))
	rec.Close()

	assert.EqualValues(t, 10, atomic.LoadInt32(&ran))
	assert.EqualValues(t, 1, atomic.LoadInt32(&failed), "failures are not retried")
	assert.False(t, rec.Submit("l1", "late", func(context.Context) error { return nil }))
	rec.Close()
}

func TestRecorder_fullQueueDrops(t *testing.T) {
	rec := NewRecorder(core.NopLogger, 1, 1, time.Second)
	release := make(chan struct{})
	started := make(chan struct{})

	assert.True(t, rec.Submit("l1", "block", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	assert.True(t, rec.Submit("l1", "queued", func(context.Context) error { return nil }))

	done := make(chan bool)
	go func() { done <- rec.Submit("l1", "dropped", func(context.Context) error { return nil }) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
	close(release)
	rec.Close()
}

func TestRecorder_timeout(t *testing.T) {
	rec := NewRecorder(core.NopLogger, 1, 1, 10*time.Millisecond)
	errc := make(chan error, 1)
	rec.Submit("l1", "slow", func(ctx context.Context) error {
		<-ctx.Done()
		errc <- ctx.Err()
		return ctx.Err()
	})
	rec.Close()
	assert.Equal(t, context.DeadlineExceeded, <-errc)
}

func TestRecorder_keepsOrderPerKey(t *testing.T) {
	rec := NewRecorder(core.NopLogger, 16, 4, time.Second)

	other := ""
	for i := 2; other == ""; i++ {
		if key := fmt.Sprintf("l%d", i); rec.shard(key) != rec.shard("l1") {
			other = key
		}
	}

	var mu sync.Mutex
	var statuses []string
	write := func(status string, delay time.Duration) Task {
		return func(context.Context) error {
			time.Sleep(delay)
			mu.Lock()
			statuses = append(statuses, status)
			mu.Unlock()
			return nil
		}
	}
	otherDone := make(chan struct{})

	assert.True(t, rec.Submit("l1", "update-status", write(StatusOngoing, 50*time.Millisecond)))
	assert.True(t, rec.Submit("l1", "update-status", write(StatusCompleted, 0)))
	assert.True(t, rec.Submit(other, "record-join", func(context.Context) error {
		close(otherDone)
		return nil
	}))

	select {
	case <-otherDone:
	case <-time.After(40 * time.Millisecond):
		t.Fatal("another lecture waited on a slow write")
	}
	rec.Close()
	assert.Equal(t, []string{StatusOngoing, StatusCompleted}, statuses)
}
