package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokeTokensRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	UseClient(client, "test")
	t.Cleanup(func() {
		UseClient(nil, "")
		_ = client.Close()
	})
	ctx := context.Background()

	_, hit, err := GetAdminAuthState(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)

	at := time.Unix(1700000000, 0)
	require.NoError(t, RevokeAdminTokens(ctx, 1, at, time.Hour))
	state, hit, err := GetAdminAuthState(ctx, 1)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, at.Unix(), state.TokenInvalidBefore)
	assert.True(t, mr.Exists("test:auth:admin:1"))

	_, hit, err = GetUserAuthState(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit, "user and admin states are keyed separately")
}

func TestAuthStateDisabledCache(t *testing.T) {
	UseClient(nil, "")
	state, hit, err := GetUserAuthState(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, state)
	assert.NoError(t, RevokeUserTokens(context.Background(), 3, time.Now(), time.Hour))
}
