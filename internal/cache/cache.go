// Package cache stores short-lived byte values such as ranked results and
// serialized models. Callers encode their own values.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Cache interface {
	// Get returns the value and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl; a non-positive ttl keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Incr atomically increments a counter and returns the new value. Counters
	// never expire.
	Incr(ctx context.Context, key string) (int64, error)
}

// GetJSON decodes a cached JSON value into out. A value that no longer
// decodes counts as a miss.
func GetJSON(ctx context.Context, c Cache, key string, out any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes value and stores it.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// Generation reads a counter without incrementing it. A missing counter is 0.
func Generation(ctx context.Context, c Cache, key string) (int64, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	var n int64
	if _, err := fmt.Sscan(string(raw), &n); err != nil {
		return 0, nil
	}
	return n, nil
}
