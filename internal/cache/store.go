package cache

import (
	"context"
	"time"
)

// Store represents a shared cache interface used across the application.
//
// IncrementWithTTL implements a fixed window counter: the first increment of a
// key starts a window of the given length, later increments inside that window
// only bump the count. It returns the new count and the time left in the window.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
