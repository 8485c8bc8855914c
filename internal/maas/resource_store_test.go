package maas

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryResourceStoreFirstWriterWins(t *testing.T) {
	store := NewMemoryResourceStore()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, KindAssistant, "priya")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.SetIfAbsent(ctx, KindAssistant, "priya", "a-1")
	require.NoError(t, err)
	assert.Equal(t, "a-1", got)

	got, err = store.SetIfAbsent(ctx, KindAssistant, "priya", "a-2")
	require.NoError(t, err)
	assert.Equal(t, "a-1", got)

	_, ok, err = store.Get(ctx, KindKnowledgeBase, "priya")
	require.NoError(t, err)
	assert.False(t, ok, "tracks are independent")
}

func TestRedisResourceStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	store := NewRedisResourceStore(client)
	store.prefix = "aeterna:test:" + uuid.NewString() + ":"
	ctx := context.Background()

	got, err := store.SetIfAbsent(ctx, KindKnowledgeBase, "jax", "kb-1")
	require.NoError(t, err)
	assert.Equal(t, "kb-1", got)

	got, err = store.SetIfAbsent(ctx, KindKnowledgeBase, "jax", "kb-2")
	require.NoError(t, err)
	assert.Equal(t, "kb-1", got)

	id, ok, err := store.Get(ctx, KindKnowledgeBase, "jax")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "kb-1", id)

	client.Del(ctx, store.key(KindKnowledgeBase, "jax"))
}
