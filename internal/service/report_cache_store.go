package service

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// ReportCacheStore holds rendered report payloads. Callers read Epoch before
// computing and embed it in the key; Invalidate bumps the epoch so every
// earlier entry stops matching at once.
type ReportCacheStore interface {
	Epoch(ctx context.Context) (uint64, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopReportCacheStore struct{}

func NewNoopReportCacheStore() *NoopReportCacheStore {
	return &NoopReportCacheStore{}
}

func (s *NoopReportCacheStore) Epoch(context.Context) (uint64, error) {
	return 0, nil
}

func (s *NoopReportCacheStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *NoopReportCacheStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (s *NoopReportCacheStore) Invalidate(context.Context) error {
	return nil
}

type reportCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

type InMemoryReportCacheStore struct {
	mu    sync.RWMutex
	data  map[string]reportCacheEntry
	epoch uint64
}

func NewInMemoryReportCacheStore() *InMemoryReportCacheStore {
	return &InMemoryReportCacheStore{data: make(map[string]reportCacheEntry)}
}

func (s *InMemoryReportCacheStore) Epoch(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch, nil
}

func (s *InMemoryReportCacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := time.Now().UTC()
	s.mu.RLock()
	entry, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (s *InMemoryReportCacheStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = reportCacheEntry{
		value:     append([]byte(nil), value...),
		expiresAt: time.Now().UTC().Add(ttl),
	}
	return nil
}

// Invalidate also drops stored entries; nothing can address them after the
// bump.
func (s *InMemoryReportCacheStore) Invalidate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	clear(s.data)
	return nil
}

func buildReportCacheKey(epoch uint64, key string) string {
	return "e" + strconv.FormatUint(epoch, 10) + ":" + key
}
