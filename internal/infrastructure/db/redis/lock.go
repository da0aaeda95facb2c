package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrEmptyLockKey is returned when WithLock is called without a key.
var ErrEmptyLockKey = errors.New("lock key is required")

// LockOptions configures acquisition of an account lock.
type LockOptions struct {
	// Expiry bounds how long a crashed holder keeps the lock.
	Expiry time.Duration
	// Tries is the number of acquisition attempts before giving up.
	Tries int
	// RetryDelay is the wait between attempts.
	RetryDelay time.Duration
	// DriftFactor accounts for clock drift between Redis nodes.
	DriftFactor float64
}

// DefaultLockOptions suits operations that finish within one ledger transaction.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Expiry:      10 * time.Second,
		Tries:       32,
		RetryDelay:  50 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

func (o LockOptions) withDefaults() LockOptions {
	def := DefaultLockOptions()
	if o.Expiry <= 0 {
		o.Expiry = def.Expiry
	}
	if o.Tries < 1 {
		o.Tries = def.Tries
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = def.RetryDelay
	}
	if o.DriftFactor < 0 || o.DriftFactor >= 1 {
		o.DriftFactor = def.DriftFactor
	}
	return o
}

// AccountLocker serialises operations on one account across service
// instances using the Redlock algorithm.
type AccountLocker struct {
	rs   *redsync.Redsync
	opts LockOptions
	log  zerolog.Logger
}

func NewAccountLocker(client *redis.Client, opts LockOptions, log zerolog.Logger) *AccountLocker {
	return &AccountLocker{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts.withDefaults(),
		log:  log,
	}
}

// WithLock runs fn while holding key. The error of fn is returned unchanged;
// acquisition failures are wrapped. A failed release is logged, the lock then
// expires on its own.
func (l *AccountLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyLockKey
	}

	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
		redsync.WithDriftFactor(l.opts.DriftFactor),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	l.log.Debug().Str("lock_key", key).Msg("lock acquired")

	defer func() {
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			l.log.Warn().Err(err).Str("lock_key", key).Bool("unlock_ok", ok).Msg("failed to release lock")
		}
	}()

	return fn(ctx)
}
