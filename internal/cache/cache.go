// Package cache provides TTL-bounded byte caching behind a small interface,
// with an in-process backend for single-instance deployments and a Redis
// backend for shared ones.
package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores opaque byte payloads under string keys with an expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
