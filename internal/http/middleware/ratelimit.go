// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with one bucket
// per identity. Boost purchases fan out to the price oracle and the ledger,
// so the limiter sits in front of them as cost protection against hammering
// clients. Buckets come from golang.org/x/time/rate, idle ones are evicted
// opportunistically, and idempotent replays (flagged by IdempotencyValidator)
// pass through without consuming tokens.
//
// The limiter is process-local. A horizontally scaled deployment that needs a
// global limit wants a shared store instead; this one covers the
// single-container case.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to the identity string that keys its bucket.
// The result must be stable for the duration of the request.
type keyFunc func(*gin.Context) string

// KeyByActorOrIP prefers the authenticated actor (Gin context key "actorID")
// and falls back to the client IP. Keys carry an "actor:" or "ip:" prefix so
// the two namespaces cannot collide.
func KeyByActorOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("actorID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "actor:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// visitor pairs a bucket with the last time its key was seen, for eviction.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds per-key token buckets behind a mutex. Buckets are created
// on demand and idle ones are dropped after a TTL during lookups, which keeps
// the map bounded without a background goroutine. Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter builds a limiter with rps tokens per second and the given
// burst, keyed by keyFn. A burst below 1 is coerced to 1; an rps of 0 admits
// nothing. Install it via Handler().
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute, // evict idle entries after TTL
	}
}

// getVisitor returns the limiter for key, creating it if absent, and runs
// eviction every ~5000 lookups. Eviction happens before the requested visitor
// is touched so a stale bucket can be dropped even when it is the one being
// fetched.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		lim := v.limiter
		rl.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	rl.mu.Unlock()
	return lim
}

// IsRateBypass reports whether IdempotencyValidator flagged this request as a
// replay of an already completed purchase. Replays skip limiting; a retry of
// work the server already did should never be throttled into failing.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the enforcing middleware. Rejected requests get a 429 with
// the standard JSON error body ("rate_limited") and a Retry-After header.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		lim := rl.getVisitor(key)

		if lim.Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
