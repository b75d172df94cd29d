package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SweepLock keeps concurrent reaper instances from sweeping at the same
// time. The lock only reduces duplicate work; closes stay conditional
// regardless.
type SweepLock interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

type NoopSweepLock struct{}

func NewNoopSweepLock() *NoopSweepLock { return &NoopSweepLock{} }

func (NoopSweepLock) TryAcquire(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

var releaseSweepLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisSweepLock struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSweepLock(client redis.UniversalClient, prefix string) *RedisSweepLock {
	if prefix == "" {
		prefix = "attendance_lock"
	}
	return &RedisSweepLock{client: client, prefix: prefix}
}

func (l *RedisSweepLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if ttl <= 0 {
		return nil, false, errors.New("sweep lock ttl must be positive")
	}
	key := l.key(name)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		return releaseSweepLockScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}

func (l *RedisSweepLock) key(name string) string {
	return l.prefix + ":" + name
}
