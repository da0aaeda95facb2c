package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultReplayTTL = 24 * time.Hour

// ReplayCache stores the outcome of idempotent requests in Redis.
// Key format: replay:<key>
type ReplayCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReplayCache creates a ReplayCache whose entries expire after ttl.
// If ttl <= 0, defaultReplayTTL is used.
func NewReplayCache(client *redis.Client, ttl time.Duration) *ReplayCache {
	if ttl <= 0 {
		ttl = defaultReplayTTL
	}
	return &ReplayCache{client: client, ttl: ttl}
}

// Load returns the stored payload and whether one exists.
func (c *ReplayCache) Load(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("replay load: %w", err)
	}
	return payload, true, nil
}

// Save records payload under key. An existing entry is kept.
func (c *ReplayCache) Save(ctx context.Context, key string, payload []byte) error {
	if err := c.client.SetNX(ctx, c.key(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("replay save: %w", err)
	}
	return nil
}

func (c *ReplayCache) key(key string) string {
	return "replay:" + key
}
