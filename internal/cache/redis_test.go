package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only when HM_TEST_REDIS_URL points at a disposable Redis.
func TestRedisCache(t *testing.T) {
	url := os.Getenv("HM_TEST_REDIS_URL")
	if url == "" {
		t.Skip("HM_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewRedis(rdb, "hm-test:"+time.Now().Format("150405.000000")+":")

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	n, err := c.Incr(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = Generation(ctx, c, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, c.Delete(ctx, "k", "gen"))
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
