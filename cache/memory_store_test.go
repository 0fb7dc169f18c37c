package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationStore(t *testing.T) {
	store := NewMemoryRevocationStore()
	defer store.Stop()
	ctx := context.Background()

	// Unknown token: no cached answer at all.
	_, found := store.Get(ctx, "unknown")
	assert.False(t, found)

	require.NoError(t, store.SetRevoked(ctx, "revoked-token", time.Now().Add(time.Hour)))
	revoked, found := store.Get(ctx, "revoked-token")
	assert.True(t, found)
	assert.True(t, revoked)

	require.NoError(t, store.SetMiss(ctx, "clean-token"))
	revoked, found = store.Get(ctx, "clean-token")
	assert.True(t, found)
	assert.False(t, revoked)
}

func TestMemoryRevocationStoreExpiredPositive(t *testing.T) {
	store := NewMemoryRevocationStore()
	defer store.Stop()
	ctx := context.Background()

	// A token already past expiry gains nothing from caching; the
	// entry must not outlive the token.
	require.NoError(t, store.SetRevoked(ctx, "expired", time.Now().Add(-time.Minute)))
	_, found := store.Get(ctx, "expired")
	assert.False(t, found)
}
