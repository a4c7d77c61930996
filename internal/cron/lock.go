package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/extrachill/marketplace-settlement/pkg/instance"
)

const defaultLockTTL = 55 * time.Minute

// Lock gives one worker instance exclusive use of a cron cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SETNX lock with a TTL so a crashed holder cannot block
// later cycles forever. The TTL should stay below the cycle interval.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	owner string

	mu    sync.Mutex
	token string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis store required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl, owner: instance.ID()}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	// The owner prefix lets operators see which instance holds the key.
	token := l.owner + ":" + uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.mu.Lock()
		l.token = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Release deletes the key only while it still holds this instance's token;
// an expired lock taken over by another worker is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token == "" {
		return nil
	}
	current, err := l.store.Get(ctx, l.key)
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read %s: %w", l.key, err)
	}
	if current == l.token {
		if err := l.store.Del(ctx, l.key); err != nil {
			return fmt.Errorf("release %s: %w", l.key, err)
		}
	}
	l.token = ""
	return nil
}
