// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with one bucket
// per key. The router installs two of them: an edge limiter keyed by client
// IP in front of everything, and a per-user limiter on view recording, placed
// after authentication, so one account cannot inflate view counters.
//
// Limits are process-local; with several replicas each enforces its own.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the bucket a request draws from.
type keyFunc func(*gin.Context) string

// KeyByIP keys buckets by client IP.
func KeyByIP() keyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

// KeyByUserOrIP prefers the authenticated user (the "userID" context value
// set by Authenticate) and falls back to the client IP. Keys are prefixed so
// the two namespaces never collide.
func KeyByUserOrIP() keyFunc {
	byIP := KeyByIP()
	return func(c *gin.Context) string {
		if uid := c.GetString("userID"); uid != "" {
			return "user:" + uid
		}
		return byIP(c)
	}
}

const (
	// sweepEvery is the number of lookups between idle-bucket sweeps.
	sweepEvery = 4096
	// defaultIdle is how long an unused bucket survives a sweep.
	defaultIdle = 10 * time.Minute
)

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out a token bucket per key. It is safe for concurrent use.
type RateLimiter struct {
	scope string
	limit rate.Limit
	burst int
	keyFn keyFunc
	idle  time.Duration
	skip  map[string]struct{}

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter builds a limiter named scope (used in logs and metrics)
// refilling rps tokens per second up to burst. rps <= 0 disables limiting;
// burst < 1 is raised to 1.
func NewRateLimiter(scope string, rps float64, burst int, keyFn keyFunc) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		scope:   scope,
		limit:   limit,
		burst:   max(burst, 1),
		keyFn:   keyFn,
		idle:    defaultIdle,
		buckets: make(map[string]*bucket),
	}
}

// Skip exempts exact request paths ("/health", "/metrics") from limiting.
func (rl *RateLimiter) Skip(paths ...string) *RateLimiter {
	if rl.skip == nil {
		rl.skip = make(map[string]struct{}, len(paths))
	}
	for _, p := range paths {
		rl.skip[p] = struct{}{}
	}
	return rl
}

// limiter returns key's bucket, creating it on first use. Idle buckets are
// swept before the lookup so a stale bucket for key is replaced, not revived.
func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.lookups++; rl.lookups >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idle {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// Handler rejects requests whose bucket is empty with 429, Retry-After: 1
// and the standard failure envelope (code "too_many_requests").
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := rl.skip[c.Request.URL.Path]; ok || rl.limit == rate.Inf {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		if rl.limiter(key, time.Now()).Allow() {
			c.Next()
			return
		}

		rateLimited.WithLabelValues(rl.scope).Inc()
		LoggerFrom(c).Warn().Str("scope", rl.scope).Str("bucket", key).Msg("rate limit exceeded")
		c.Header("Retry-After", "1")
		abortWith(c, http.StatusTooManyRequests, "too_many_requests", "Too many requests, please try again later.")
	}
}
