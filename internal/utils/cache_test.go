package utils

import (
	"context"
	"testing"
	"time"

	"deepfake_shield/internal/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	type payload struct {
		Total int    `json:"total"`
		Name  string `json:"name"`
	}

	var got payload
	found, err := GetCache(ctx, store, "admin:overview", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetCache(ctx, store, "admin:overview", payload{Total: 6, Name: "x"}, time.Minute))
	found, err = GetCache(ctx, store, "admin:overview", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Total: 6, Name: "x"}, got)

	require.NoError(t, DeleteCachePrefix(ctx, store, "admin:"))
	found, err = GetCache(ctx, store, "admin:overview", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
