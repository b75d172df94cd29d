package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisReportCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisReportCacheStore(client redis.UniversalClient, prefix string) *RedisReportCacheStore {
	if prefix == "" {
		prefix = "attendance_report"
	}
	return &RedisReportCacheStore{client: client, prefix: prefix}
}

func (s *RedisReportCacheStore) Epoch(ctx context.Context) (uint64, error) {
	if s.client == nil {
		return 0, nil
	}
	return parseEpoch(s.client.Get(ctx, s.epochKey()))
}

func (s *RedisReportCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, nil
	}
	raw, err := s.client.Get(ctx, s.dataKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s *RedisReportCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.dataKey(key), value, ttl).Err()
}

// Invalidate leaves old entries to expire by TTL.
func (s *RedisReportCacheStore) Invalidate(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Incr(ctx, s.epochKey()).Err()
}

func (s *RedisReportCacheStore) dataKey(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisReportCacheStore) epochKey() string {
	return s.prefix + ":epoch"
}

func parseEpoch(cmd *redis.StringCmd) (uint64, error) {
	v, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 0, nil
	}
	return strconv.ParseUint(v, 10, 64)
}
