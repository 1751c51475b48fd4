// Package cache provides a read-through cache for user snapshots backed by
// Redis. Entries are keyed per username and carry a TTL so stale credentials
// age out even if invalidation is missed.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/addrbook/addrbook/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when no entry exists for the username.
var ErrMiss = errors.New("cache: miss")

const keyPrefix = "user:"

// DefaultTTL bounds how long a cached snapshot may serve logins after the
// underlying credentials change.
const DefaultTTL = time.Hour

type UserCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewUserCache wraps an existing Redis client. A non-positive ttl falls back
// to DefaultTTL.
func NewUserCache(rdb *redis.Client, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &UserCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached snapshot for username. A missing key yields ErrMiss;
// any other error means Redis itself failed and callers should fall back to
// the store.
func (c *UserCache) Get(ctx context.Context, username string) (domain.UserSnapshot, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+username).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserSnapshot{}, ErrMiss
	}
	if err != nil {
		return domain.UserSnapshot{}, fmt.Errorf("cache get %q: %w", username, err)
	}

	var snap domain.UserSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt entry is as good as absent. Drop it so the next write
		// starts clean.
		_ = c.rdb.Del(ctx, keyPrefix+username).Err()
		return domain.UserSnapshot{}, ErrMiss
	}
	return snap, nil
}

// Put stores the snapshot under the username key with the configured TTL.
func (c *UserCache) Put(ctx context.Context, snap domain.UserSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache marshal %q: %w", snap.Username, err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+snap.Username, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put %q: %w", snap.Username, err)
	}
	return nil
}

// Invalidate removes the entry for username. Deleting an absent key is not an
// error.
func (c *UserCache) Invalidate(ctx context.Context, username string) error {
	if err := c.rdb.Del(ctx, keyPrefix+username).Err(); err != nil {
		return fmt.Errorf("cache invalidate %q: %w", username, err)
	}
	return nil
}

// Ping verifies the Redis connection is still alive.
func (c *UserCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
