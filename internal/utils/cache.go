package utils

import (
	"context"       // Context for store operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	"deepfake_shield/internal/kv" // Key-value store
)

// GetCache retrieves a value from the store and unmarshals it into dest
func GetCache(ctx context.Context, store kv.Store, key string, dest any) (bool, error) {
	val, found, err := store.Get(ctx, key) // Get value from the store
	if err != nil {
		return false, err // Store error
	}
	if !found {
		return false, nil // Key does not exist
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in the store with a specified TTL
func SetCache(ctx context.Context, store kv.Store, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return store.Set(ctx, key, string(b), ttl) // Set value with TTL
}

// DeleteCache deletes keys from the store
func DeleteCache(ctx context.Context, store kv.Store, keys ...string) error {
	return store.Delete(ctx, keys...) // Delete keys
}

// DeleteCachePrefix deletes every key under prefix
func DeleteCachePrefix(ctx context.Context, store kv.Store, prefix string) error {
	return store.DeletePrefix(ctx, prefix) // Delete all matching keys
}
