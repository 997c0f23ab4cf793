package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set, skipping")
	}

	locker, err := NewRedisLocker(addr, os.Getenv("TEST_REDIS_PASSWORD"), 0, 5*time.Second)
	require.NoError(t, err)
	defer locker.Close()

	ctx := context.Background()
	key := "test:" + t.Name()

	unlock, err := locker.Lock(ctx, key)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, key)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	again, err := locker.Lock(ctx, key)
	require.NoError(t, err)
	again()
}
