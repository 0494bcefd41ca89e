// Package cache defines the key/value store used to gate profile refreshes,
// hold per-account counters and hand off alias batches to background jobs.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Get when the key does not exist or has expired.
	ErrMiss   = errors.New("cache key not found")
	ErrEncode = errors.New("failed to encode cache value")
	ErrDecode = errors.New("failed to decode cache value")
	ErrCache  = errors.New("cache operation failed")
)

// Cache is the store capability injected into the refresh and detection
// pipelines. Values are JSON encoded. A zero ttl passed to Put behaves
// like Forever.
type Cache interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string, dest any) error
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	Forever(ctx context.Context, key string, value any) error
	Forget(ctx context.Context, key string) error
}
