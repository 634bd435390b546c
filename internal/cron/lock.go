package cron

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 25 * time.Hour

// ErrLockLost is returned by Extend once the lease expired and another worker may own it.
var ErrLockLost = errors.New("cron lock lost")

// Lock is the lease that keeps cron cycles from overlapping across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Extend(ctx context.Context) error
	Release(ctx context.Context) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock holds a Redis key whose value is "<host>/<pid>|<token>". The token proves ownership
// and the prefix tells a skipped replica who is running the cycle.
type RedisLock struct {
	client   redisStore
	key      string
	ttl      time.Duration
	identity string
	token    string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return &RedisLock{
		client:   client,
		key:      key,
		ttl:      ttl,
		identity: fmt.Sprintf("%s/%d", host, os.Getpid()),
	}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := l.identity + "|" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Extend pushes the lease out by another TTL while the cycle works through slow jobs.
func (l *RedisLock) Extend(ctx context.Context) error {
	if l.token == "" {
		return ErrLockLost
	}
	owned, err := l.owned(ctx)
	if err != nil {
		return err
	}
	if !owned {
		l.token = ""
		return ErrLockLost
	}
	if _, err := l.client.Expire(ctx, l.key, l.ttl); err != nil {
		return fmt.Errorf("extend lock: %w", err)
	}
	return nil
}

// Release frees the lock only if the token still matches.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	owned, err := l.owned(ctx)
	if err != nil {
		return err
	}
	if !owned {
		l.token = ""
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.token = ""
	return nil
}

// Holder names the worker currently holding the lock, or "" when it is free.
func (l *RedisLock) Holder(ctx context.Context) (string, error) {
	value, err := l.client.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read lock holder: %w", err)
	}
	holder, _, _ := strings.Cut(value, "|")
	return holder, nil
}

func (l *RedisLock) owned(ctx context.Context) (bool, error) {
	value, err := l.client.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read lock owner: %w", err)
	}
	return value == l.token, nil
}
