// Package kv is the small key-value persistence layer behind sessions,
// preferences and response caching. Redis backs it in deployments; an
// in-process map backs it in tests and single-node demos.
package kv

import (
	"context"
	"time"
)

// Store is a string key-value store with optional per-key expiry.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key. A zero ttl keeps the key until deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes the given keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}
