package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cityinfra/trafficcontrol/internal/shared/config"
)

const runLockPrefix = "cityinfra:runlock:"

// ErrLockHeld is returned when another process owns the lock.
var ErrLockHeld = errors.New("run lock is held by another process")

// releaseScript deletes the key only when it still carries our token, so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a held lock. Release is safe to call more than once.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release run lock %s: %w", l.key, err)
	}
	return nil
}

// RunLock keeps a batch command or scheduled job to one running instance.
// A nil client turns every acquire into a no-op success.
type RunLock struct {
	client *redis.Client
}

func NewRunLock(client *redis.Client) *RunLock {
	return &RunLock{client: client}
}

// NewRedisClient returns nil when Redis is not configured.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// TryAcquire takes the named lock for ttl or returns ErrLockHeld.
func (r *RunLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	if r == nil || r.client == nil {
		return &Lease{}, nil
	}
	key := runLockPrefix + name
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lease{client: r.client, key: key, token: token}, nil
}
