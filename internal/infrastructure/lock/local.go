package lock

import (
	"context"
	"fmt"
	"hash/fnv"
)

const defaultStripes = 64

// StripedLocker serialises work per key inside one process. Keys are mapped
// onto a fixed set of stripes by consistent hashing, so two keys may share a
// stripe but one key always lands on the same one.
type StripedLocker struct {
	stripes []chan struct{}
}

// NewStripedLocker creates a StripedLocker with n stripes.
// If n <= 0, defaultStripes is used.
func NewStripedLocker(n int) *StripedLocker {
	if n <= 0 {
		n = defaultStripes
	}
	l := &StripedLocker{stripes: make([]chan struct{}, n)}
	for i := range l.stripes {
		l.stripes[i] = make(chan struct{}, 1)
	}
	return l
}

// WithLock runs fn while holding the stripe of key. Waiting stops when ctx
// is done.
func (l *StripedLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	stripe := l.stripes[l.shardIndex(key)]
	select {
	case stripe <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
	}
	defer func() { <-stripe }()

	return fn(ctx)
}

// shardIndex maps a key deterministically to a stripe index.
func (l *StripedLocker) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.stripes)))
}
