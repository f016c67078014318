package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("first mark succeeds, replay is rejected", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		first, err := store.MarkProcessed(ctx, "waybill-commit-123", time.Minute)
		require.NoError(t, err)
		assert.True(t, first)

		replay, err := store.MarkProcessed(ctx, "waybill-commit-123", time.Minute)
		require.NoError(t, err)
		assert.False(t, replay)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(ctx, "key", 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		again, err := store.MarkProcessed(ctx, "key", time.Minute)
		require.NoError(t, err)
		assert.True(t, again)
	})

	t.Run("distinct keys do not collide", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		a, err := store.MarkProcessed(ctx, "key-a", time.Minute)
		require.NoError(t, err)
		b, err := store.MarkProcessed(ctx, "key-b", time.Minute)
		require.NoError(t, err)

		assert.True(t, a)
		assert.True(t, b)
		assert.Equal(t, 2, store.Size())
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "known", time.Minute)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "known")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
