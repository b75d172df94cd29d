package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/attendance-session-service/internal/observability"
)

// ReportCache wraps a store with JSON encoding and collapses concurrent
// misses for the same key. Store failures degrade to recomputation.
type ReportCache struct {
	store  ReportCacheStore
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func NewReportCache(store ReportCacheStore, ttl time.Duration, logger *slog.Logger) *ReportCache {
	if store == nil {
		store = NewNoopReportCacheStore()
	}
	return &ReportCache{store: store, ttl: ttl, logger: logger}
}

// Invalidate is called after every lifecycle mutation.
func (c *ReportCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.store.Invalidate(ctx); err != nil {
		c.logger.WarnContext(ctx, "report cache invalidation failed", "error", err)
	}
}

func cachedReport[T any](ctx context.Context, c *ReportCache, name, params string, compute func(context.Context) (T, error)) (T, error) {
	if c == nil || c.ttl <= 0 {
		return compute(ctx)
	}
	epoch, err := c.store.Epoch(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "report cache epoch read failed", "report", name, "error", err)
		observability.RecordReportCacheEvent(ctx, name, "error")
		return compute(ctx)
	}
	// The epoch is fixed before computing so a result that raced a mutation
	// lands under a key nobody reads again.
	key := buildReportCacheKey(epoch, name+":"+params)
	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "report cache read failed", "report", name, "error", err)
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			observability.RecordReportCacheEvent(ctx, name, "hit")
			return cached, nil
		}
	}
	observability.RecordReportCacheEvent(ctx, name, "miss")

	v, err, _ := c.group.Do(key, func() (any, error) {
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(result); err == nil {
			if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
				c.logger.WarnContext(ctx, "report cache write failed", "report", name, "error", err)
			}
		}
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	result, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("report cache: unexpected type %T", v)
	}
	return result, nil
}
