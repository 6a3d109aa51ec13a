package ratelimit

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_Allow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	l := NewTokenBucket(3, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok, "bucket should be empty")

	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "keys have separate buckets")

	now = now.Add(21 * time.Second) // a bit more than one token back at 3/min
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		ok, _ = l.Allow(ctx, "10.0.0.1")
		assert.True(t, ok, "refilled up to capacity only")
	}
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)
}

func TestRedis_Allow(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := NewRedisClient(addr)
	defer func() { _ = client.Close() }()

	l := NewRedis(client, "test:login:", 2)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	key := "203.0.113." + strconv.FormatInt(time.Now().UnixNano()%250, 10)
	require.NoError(t, client.Del(ctx, "test:login:"+key+":202610150900").Err())

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
