package cache

import (
	"context"
	"testing"
	"time"

	"github.com/addrbook/addrbook/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*UserCache, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewUserCache(rdb, time.Hour), srv
}

func TestUserCache(t *testing.T) {
	ctx := context.Background()

	snap := domain.UserSnapshot{
		ID:           "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Username:     "deadpool",
		Email:        "deadpool@example.com",
		PasswordHash: "$argon2id$fake",
	}

	t.Run("miss on empty cache", func(t *testing.T) {
		c, _ := newTestCache(t)
		_, err := c.Get(ctx, "deadpool")
		require.ErrorIs(t, err, ErrMiss)
	})

	t.Run("put then get round trips", func(t *testing.T) {
		c, srv := newTestCache(t)
		require.NoError(t, c.Put(ctx, snap))

		got, err := c.Get(ctx, "deadpool")
		require.NoError(t, err)
		require.Equal(t, snap, got)

		// Entries are keyed by username with a TTL.
		require.True(t, srv.Exists("user:deadpool"))
		require.Equal(t, time.Hour, srv.TTL("user:deadpool"))
	})

	t.Run("entry expires at the TTL", func(t *testing.T) {
		c, srv := newTestCache(t)
		require.NoError(t, c.Put(ctx, snap))

		srv.FastForward(time.Hour + time.Second)
		_, err := c.Get(ctx, "deadpool")
		require.ErrorIs(t, err, ErrMiss)
	})

	t.Run("invalidate removes the entry", func(t *testing.T) {
		c, _ := newTestCache(t)
		require.NoError(t, c.Put(ctx, snap))
		require.NoError(t, c.Invalidate(ctx, "deadpool"))

		_, err := c.Get(ctx, "deadpool")
		require.ErrorIs(t, err, ErrMiss)

		// Invalidating again is a no-op.
		require.NoError(t, c.Invalidate(ctx, "deadpool"))
	})

	t.Run("corrupt entry reads as a miss and is dropped", func(t *testing.T) {
		c, srv := newTestCache(t)
		require.NoError(t, srv.Set("user:deadpool", "{not json"))

		_, err := c.Get(ctx, "deadpool")
		require.ErrorIs(t, err, ErrMiss)
		require.False(t, srv.Exists("user:deadpool"))
	})

	t.Run("redis failure is surfaced, not a miss", func(t *testing.T) {
		c, srv := newTestCache(t)
		srv.SetError("boom")

		_, err := c.Get(ctx, "deadpool")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrMiss)
	})
}
