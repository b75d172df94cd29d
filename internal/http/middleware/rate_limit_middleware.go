package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sandeepkv93/attendance-session-service/internal/http/response"
	"github.com/sandeepkv93/attendance-session-service/internal/observability"
)

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
	ResetAt    time.Time
}

type RateLimitPolicy struct {
	SustainedLimit    int
	SustainedWindow   time.Duration
	BurstCapacity     int
	BurstRefillPerSec float64
}

type Limiter interface {
	Allow(ctx context.Context, key string, policy RateLimitPolicy) (Decision, error)
}

// localLimiter combines a token bucket for bursts with a sliding window for
// the sustained rate. State is per process.
type localLimiter struct {
	mu      sync.Mutex
	store   map[string]*localHybridState
	cleanup time.Time
	now     func() time.Time
}

type localHybridState struct {
	tokens     float64
	lastRefill time.Time
	hits       []time.Time
}

type RateLimiter struct {
	limiter Limiter
	policy  RateLimitPolicy
	scope   string
	keyFunc func(r *http.Request) string
}

func NewLocalLimiter() Limiter {
	return &localLimiter{
		store:   make(map[string]*localHybridState),
		cleanup: time.Now().Add(time.Minute),
		now:     time.Now,
	}
}

// NewRateLimiter limits each key to limit requests per window. A nil keyFunc
// keys by client IP.
func NewRateLimiter(limit int, window time.Duration, scope string, keyFunc func(r *http.Request) string) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	if keyFunc == nil {
		keyFunc = clientIPKey
	}
	return &RateLimiter{
		limiter: NewLocalLimiter(),
		policy:  newRateLimitPolicy(limit, window),
		scope:   scope,
		keyFunc: keyFunc,
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.keyFunc(r)
			if key == "" {
				key = clientIPKey(r)
			}
			decision, err := rl.limiter.Allow(r.Context(), key, rl.policy)
			if err != nil {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error")
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			writeRateLimitHeaders(w.Header(), rl.policy.SustainedLimit, decision.Remaining, decision.ResetAt)
			if !decision.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny")
				w.Header().Set("Retry-After", retryAfterHeader(decision.RetryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// SubjectOrIPKey keys authenticated requests by token subject. It must run
// after AuthMiddleware to see the claims.
func SubjectOrIPKey(r *http.Request) string {
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	return clientIPKey(r)
}

func (rl *localLimiter) Allow(_ context.Context, key string, policy RateLimitPolicy) (Decision, error) {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.cleanup) {
		for k, v := range rl.store {
			if len(v.hits) == 0 && now.Sub(v.lastRefill) > 2*policy.SustainedWindow {
				delete(rl.store, k)
			}
		}
		rl.cleanup = now.Add(policy.SustainedWindow)
	}

	state, ok := rl.store[key]
	if !ok {
		state = &localHybridState{tokens: float64(policy.BurstCapacity), lastRefill: now}
		rl.store[key] = state
	}
	if now.After(state.lastRefill) {
		elapsed := now.Sub(state.lastRefill).Seconds()
		state.tokens = min(float64(policy.BurstCapacity), state.tokens+(elapsed*policy.BurstRefillPerSec))
		state.lastRefill = now
	}

	cutoff := now.Add(-policy.SustainedWindow)
	pruned := state.hits[:0]
	for _, hit := range state.hits {
		if hit.After(cutoff) {
			pruned = append(pruned, hit)
		}
	}
	state.hits = pruned

	var bucketRetry, windowRetry time.Duration
	if state.tokens < 1 {
		need := 1 - state.tokens
		bucketRetry = time.Duration(math.Ceil((need / policy.BurstRefillPerSec) * float64(time.Second)))
	}
	if len(state.hits) >= policy.SustainedLimit {
		windowRetry = max(state.hits[0].Add(policy.SustainedWindow).Sub(now), 0)
	}

	allowed := bucketRetry <= 0 && len(state.hits) < policy.SustainedLimit
	if allowed {
		state.tokens = max(state.tokens-1, 0)
		state.hits = append(state.hits, now)
	}

	remaining := max(min(int(math.Floor(state.tokens)), policy.SustainedLimit-len(state.hits)), 0)
	retryAfter := max(bucketRetry, windowRetry)
	if !allowed && retryAfter <= 0 {
		retryAfter = time.Second
	}
	resetAt := now.Add(policy.SustainedWindow)
	if len(state.hits) > 0 {
		resetAt = state.hits[0].Add(policy.SustainedWindow)
	}
	if !allowed {
		resetAt = now.Add(retryAfter)
	}
	return Decision{Allowed: allowed, RetryAfter: retryAfter, Remaining: remaining, ResetAt: resetAt}, nil
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}

func writeRateLimitHeaders(h http.Header, limit int, remaining int, resetAt time.Time) {
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", max(limit, 0)))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(remaining, 0)))
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
}

func newRateLimitPolicy(limit int, window time.Duration) RateLimitPolicy {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return RateLimitPolicy{
		SustainedLimit:    limit,
		SustainedWindow:   window,
		BurstCapacity:     limit,
		BurstRefillPerSec: float64(limit) / window.Seconds(),
	}
}
