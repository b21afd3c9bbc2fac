package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSetGet(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "leads:all", `[{"id":1}]`, time.Minute))

	got, err := c.Get(ctx, "leads:all")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, got)
}

func TestGetMiss(t *testing.T) {
	c := setupTestCache(t)

	_, err := c.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, IsMiss(err))
}

func TestDelete(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k1"))

	_, err := c.Get(ctx, "k1")
	assert.True(t, IsMiss(err))
}

func TestDeletePattern(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "leads:stage:new", "a", time.Minute))
	require.NoError(t, c.Set(ctx, "leads:stage:won", "b", time.Minute))
	require.NoError(t, c.Set(ctx, "users:1", "c", time.Minute))

	require.NoError(t, c.DeletePattern(ctx, "leads:*"))

	_, err := c.Get(ctx, "leads:stage:new")
	assert.True(t, IsMiss(err))
	_, err = c.Get(ctx, "leads:stage:won")
	assert.True(t, IsMiss(err))

	got, err := c.Get(ctx, "users:1")
	require.NoError(t, err)
	assert.Equal(t, "c", got)
}
