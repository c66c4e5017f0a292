package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/csdakkoni/ecommerce-sub000/pkg/correlation"
)

// defaultLockTTL covers one maintenance cycle; Refresh extends it between jobs.
const defaultLockTTL = 10 * time.Minute

// Lock makes sure a single cron worker runs a maintenance cycle at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

var errLockLost = errors.New("cron lock owned by another worker")

// RedisLock stores a per-acquisition owner token under key.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	ids   correlation.Generator
	owner string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl, ids: correlation.NewGenerator()}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := l.ids.NewID()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Refresh resets the TTL while this instance still owns the lock.
func (l *RedisLock) Refresh(ctx context.Context) error {
	held, err := l.holds(ctx)
	if err != nil {
		return err
	}
	if !held {
		l.owner = ""
		return errLockLost
	}
	if err := l.store.Set(ctx, l.key, l.owner, l.ttl); err != nil {
		return fmt.Errorf("refresh %s: %w", l.key, err)
	}
	return nil
}

// Release deletes the key only when this instance owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	held, err := l.holds(ctx)
	if err != nil || !held {
		l.owner = ""
		return err
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	l.owner = ""
	return nil
}

func (l *RedisLock) holds(ctx context.Context) (bool, error) {
	if l.owner == "" {
		return false, nil
	}
	value, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("read %s owner: %w", l.key, err)
	}
	return value == l.owner, nil
}
