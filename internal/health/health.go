package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type CheckResult struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

type CheckerFunc func(ctx context.Context) CheckResult

func (f CheckerFunc) Check(ctx context.Context) CheckResult { return f(ctx) }

// ProbeRunner runs every checker concurrently under a shared timeout.
// Results are reused for cacheTTL so a busy readiness endpoint does not hammer
// the database.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker

	mu       sync.Mutex
	cachedAt time.Time
	cached   []CheckResult
	now      func() time.Time
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers, now: time.Now}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	results := p.results(ctx)
	for _, r := range results {
		if !r.Healthy {
			return false, results
		}
	}
	return true, results
}

func (p *ProbeRunner) results(ctx context.Context) []CheckResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cacheTTL > 0 && p.cached != nil && p.now().Sub(p.cachedAt) < p.cacheTTL {
		return p.cached
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	results := make([]CheckResult, len(p.checkers))
	var wg sync.WaitGroup
	for i, c := range p.checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			results[i] = c.Check(ctx)
		}(i, c)
	}
	wg.Wait()

	p.cached = results
	p.cachedAt = p.now()
	return results
}

func timed(ctx context.Context, name string, fn func(context.Context) error) CheckResult {
	started := time.Now()
	err := fn(ctx)
	res := CheckResult{Name: name, Healthy: err == nil, LatencyMS: time.Since(started).Milliseconds()}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func DBChecker(db *gorm.DB) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		return timed(ctx, "db", func(ctx context.Context) error {
			if db == nil {
				return errors.New("database not configured")
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	})
}

func RedisChecker(client redis.UniversalClient) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		return timed(ctx, "redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	})
}
