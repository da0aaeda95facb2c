package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStripedLocker_SameKeyIsExclusive(t *testing.T) {
	l := NewStripedLocker(4)

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		overlap atomic.Bool
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), "lock:profile:c1", func(context.Context) error {
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if overlap.Load() {
		t.Fatal("two holders of the same key ran concurrently")
	}
}

func TestStripedLocker_PropagatesError(t *testing.T) {
	l := NewStripedLocker(0)
	boom := errors.New("boom")

	if err := l.WithLock(context.Background(), "k", func(context.Context) error { return boom }); err != boom {
		t.Fatalf("expected fn error, got %v", err)
	}
	// The stripe must be free again.
	if err := l.WithLock(context.Background(), "k", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("second lock: %v", err)
	}
}

func TestStripedLocker_ContextCancelled(t *testing.T) {
	l := NewStripedLocker(1)
	acquired := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithLock(context.Background(), "a", func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ran := false
	err := l.WithLock(ctx, "b", func(context.Context) error { ran = true; return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if ran {
		t.Error("fn must not run without the lock")
	}
}

func TestStripedLocker_ShardIndexIsStable(t *testing.T) {
	l := NewStripedLocker(8)
	first := l.shardIndex("lock:profile:42")
	for i := 0; i < 10; i++ {
		if got := l.shardIndex("lock:profile:42"); got != first {
			t.Fatalf("shard changed: %d != %d", got, first)
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard %d out of range", first)
	}
}
