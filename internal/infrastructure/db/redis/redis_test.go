package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestProbe(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), Config{Addr: mr.Addr(), Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	defer client.Close()

	probe := Probe(client)
	require.NoError(t, probe(context.Background()))

	mr.Close()
	assert.Error(t, probe(context.Background()))
}

func TestReplayCache_LoadSave(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewReplayCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Load(ctx, "deposit:c1:k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Save(ctx, "deposit:c1:k", []byte(`{"due":"40"}`)))
	payload, ok, err := cache.Load(ctx, "deposit:c1:k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"due":"40"}`, string(payload))

	// First write wins.
	require.NoError(t, cache.Save(ctx, "deposit:c1:k", []byte(`{"due":"1"}`)))
	payload, _, _ = cache.Load(ctx, "deposit:c1:k")
	assert.JSONEq(t, `{"due":"40"}`, string(payload))

	assert.True(t, mr.Exists("replay:deposit:c1:k"))
	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Load(ctx, "deposit:c1:k")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire")
}

func TestReplayCache_LoadError(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewReplayCache(client, 0)
	mr.Close()

	_, _, err := cache.Load(context.Background(), "k")
	assert.Error(t, err)
}

func TestAccountLocker_RunsFunction(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewAccountLocker(client, LockOptions{}, zerolog.Nop())

	ran := false
	err := locker.WithLock(context.Background(), "lock:profile:c1", func(context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:profile:c1"), "lock must be held while fn runs")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:profile:c1"), "lock must be released")
}

func TestAccountLocker_PropagatesError(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewAccountLocker(client, LockOptions{}, zerolog.Nop())
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), "lock:profile:c1", func(context.Context) error { return boom })
	assert.Equal(t, boom, err)
}

func TestAccountLocker_EmptyKey(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewAccountLocker(client, LockOptions{}, zerolog.Nop())

	err := locker.WithLock(context.Background(), " ", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyLockKey)
}

func TestAccountLocker_Contention(t *testing.T) {
	_, client := setupTestRedis(t)
	holder := NewAccountLocker(client, LockOptions{}, zerolog.Nop())
	impatient := NewAccountLocker(client, LockOptions{Tries: 1, RetryDelay: time.Millisecond}, zerolog.Nop())

	acquired := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- holder.WithLock(context.Background(), "lock:profile:c1", func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	ran := false
	err := impatient.WithLock(context.Background(), "lock:profile:c1", func(context.Context) error {
		ran = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, ran)

	close(release)
	require.NoError(t, <-done)
}

func TestAccountLocker_MutualExclusion(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewAccountLocker(client, LockOptions{Tries: 200, RetryDelay: 5 * time.Millisecond}, zerolog.Nop())

	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		overlap atomic.Bool
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "lock:profile:c1", func(context.Context) error {
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(5 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.False(t, overlap.Load(), "two holders ran concurrently")
}
