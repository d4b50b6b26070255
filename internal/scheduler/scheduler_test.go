package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	s := New(nil)
	assert.Error(t, s.Add("broken", "every tuesday-ish", func(context.Context) {}))
	assert.NoError(t, s.Add("weekly", "@weekly", func(context.Context) {}))
	assert.NoError(t, s.Add("often", "@every 1h", func(context.Context) {}))
}

func TestImmediateRun(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := New(nil, WithImmediateRun())
	require.NoError(t, s.Add("retrain", "@weekly", func(context.Context) { runs.Add(1) }))

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	assert.Equal(t, int32(1), runs.Load())
}

func TestCancelledContextSkipsRun(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := New(nil, WithImmediateRun())
	require.NoError(t, s.Add("retrain", "@every 1h", func(context.Context) { runs.Add(1) }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Start(ctx))

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Zero(t, runs.Load())
}
