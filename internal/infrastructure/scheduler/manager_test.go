package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/cache"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

func TestSchedulerManager_RegisterUserJobs(t *testing.T) {
	m, err := NewSchedulerManager(nil, logger.NewNop())
	require.NoError(t, err)

	noop := BatchJobFunc(func(context.Context) (int, error) { return 0, nil })
	require.NoError(t, m.RegisterUserJobs("0 7 * * *", "0 8 1 * *", noop, noop))

	names := map[string]bool{}
	for _, j := range m.Jobs() {
		names[j.Name()] = true
	}
	assert.True(t, names[JobInactivityNotify])
	assert.True(t, names[JobDeactivatedUsersReport])

	m.Start()
	assert.True(t, m.IsStarted())
	require.NoError(t, m.Stop())
	assert.False(t, m.IsStarted())
}

func TestSchedulerManager_InvalidCron(t *testing.T) {
	m, err := NewSchedulerManager(nil, logger.NewNop())
	require.NoError(t, err)
	err = m.RegisterCronJob("bad", "not a cron", time.Minute, BatchJobFunc(func(context.Context) (int, error) { return 0, nil }))
	assert.Error(t, err)
}

func TestSchedulerManager_RunSkipsWhenLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lock := cache.NewRunLock(client)

	m, err := NewSchedulerManager(lock, logger.NewNop())
	require.NoError(t, err)

	calls := 0
	job := BatchJobFunc(func(context.Context) (int, error) { calls++; return 1, nil })

	held, err := lock.TryAcquire(context.Background(), JobInactivityNotify, time.Minute)
	require.NoError(t, err)
	m.RunNow(context.Background(), JobInactivityNotify, job)
	assert.Equal(t, 0, calls)

	require.NoError(t, held.Release(context.Background()))
	m.RunNow(context.Background(), JobInactivityNotify, job)
	assert.Equal(t, 1, calls)

	failing := BatchJobFunc(func(context.Context) (int, error) { return 0, errors.New("boom") })
	m.RunNow(context.Background(), JobInactivityNotify, failing)
	assert.False(t, mr.Exists("cityinfra:runlock:"+JobInactivityNotify))
}
