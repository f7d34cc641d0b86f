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

func setupRunLock(t *testing.T) (*RunLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRunLock(client), mr
}

func TestRunLock_Exclusive(t *testing.T) {
	lock, mr := setupRunLock(t)
	ctx := context.Background()

	lease, err := lock.TryAcquire(ctx, "map-plans-to-reals", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists(runLockPrefix+"map-plans-to-reals"))

	_, err = lock.TryAcquire(ctx, "map-plans-to-reals", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	// other names are independent
	other, err := lock.TryAcquire(ctx, "enrich-parking-zones", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists(runLockPrefix+"map-plans-to-reals"))

	again, err := lock.TryAcquire(ctx, "map-plans-to-reals", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRunLock_ExpiredLeaseDoesNotReleaseNewOwner(t *testing.T) {
	lock, mr := setupRunLock(t)
	ctx := context.Background()

	stale, err := lock.TryAcquire(ctx, "worker", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := lock.TryAcquire(ctx, "worker", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists(runLockPrefix+"worker"))
	require.NoError(t, fresh.Release(ctx))
}

func TestRunLock_DisabledIsNoop(t *testing.T) {
	lock := NewRunLock(nil)
	lease, err := lock.TryAcquire(context.Background(), "any", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, lease.Release(context.Background()))
}
