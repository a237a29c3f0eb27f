package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "some-jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "some-jti", time.Hour))

	revoked, err = store.IsRevoked(ctx, "some-jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Other tokens are unaffected.
	revoked, err = store.IsRevoked(ctx, "other-jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryTokenStoreExpiry(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "short-lived", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	revoked, err := store.IsRevoked(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryTokenStoreExpiredTTLIsNoop(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "already-expired", -time.Minute))

	revoked, err := store.IsRevoked(ctx, "already-expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}
