package ports

import "context"

// AccountLocker serialises operations touching the same account.
type AccountLocker interface {
	// WithLock runs fn while holding the lock identified by key.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// ReplayCache remembers the outcome of idempotent requests.
type ReplayCache interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, payload []byte) error
}
