package sessionlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithLockSerializesSameSession(t *testing.T) {
	l := New()
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = WithLock(context.Background(), l, "s-1", func() error {
				n := atomic.AddInt32(&active, 1)
				for {
					cur := atomic.LoadInt32(&maxActive)
					if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxActive, "only one holder of session s-1's lock at a time")
}

func TestWithLockAllowsDifferentSessionsConcurrently(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	start := make(chan struct{})
	release := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = WithLock(context.Background(), l, "a", func() error {
			close(start)
			<-release
			return nil
		})
	}()

	<-start
	done := make(chan struct{})
	go func() {
		_ = WithLock(context.Background(), l, "b", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session b was blocked by session a's lock")
	}
	close(release)
	wg.Wait()
}

func TestWithLockRespectsCanceledContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WithLock(ctx, l, "s-1", func() error {
		called = true
		return nil
	})

	require.Error(t, err)
	require.False(t, called)
}
