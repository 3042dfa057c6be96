package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewStore(client, time.Hour)
	ctx := context.Background()

	t.Run("first delivery acquires", func(t *testing.T) {
		ok, err := store.Acquire(ctx, "WH-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("duplicate delivery is rejected", func(t *testing.T) {
		ok, err := store.Acquire(ctx, "WH-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("release allows redelivery", func(t *testing.T) {
		require.NoError(t, store.Release(ctx, "WH-1"))
		ok, err := store.Acquire(ctx, "WH-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("marker expires", func(t *testing.T) {
		ok, err := store.Acquire(ctx, "WH-2")
		require.NoError(t, err)
		require.True(t, ok)

		mr.FastForward(2 * time.Hour)
		ok, err = store.Acquire(ctx, "WH-2")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
