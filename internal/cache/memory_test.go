package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	m := NewMemory(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))

	v, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	now = now.Add(time.Minute)

	_, ok, _ = m.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemoryDeleteAndCopy(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	value := []byte("x")
	require.NoError(t, m.Set(ctx, "k", value, 0))
	value[0] = 'y'

	got, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("x"), got)

	require.NoError(t, m.Delete(ctx, "k", "missing"))
	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryIncrIsAtomic(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Incr(ctx, "gen")
		}()
	}
	wg.Wait()

	n, err := Generation(ctx, m, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(50), n)

	n, err = Generation(ctx, m, "other")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJSONHelpers(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	type payload struct{ IDs []string }
	require.NoError(t, SetJSON(ctx, m, "p", payload{IDs: []string{"c-1"}}, time.Hour))

	var got payload
	ok, err := GetJSON(ctx, m, "p", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"c-1"}, got.IDs)

	require.NoError(t, m.Set(ctx, "broken", []byte("{"), 0))
	ok, err = GetJSON(ctx, m, "broken", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
