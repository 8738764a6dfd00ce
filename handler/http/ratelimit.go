package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client bucket may sit unused before it is
// evicted. An evicted client starts over with a full burst, which is what a
// fully refilled bucket gives anyway.
const limiterIdleTTL = 3 * time.Minute

// RateLimitConfig bounds how often a single client may start jobs.
type RateLimitConfig struct {
	// PerMinute is the sustained number of job starts allowed per minute
	// for one client IP. Zero disables rate limiting.
	PerMinute int

	// Burst is the token-bucket burst size. Defaults to PerMinute when
	// zero.
	Burst int
}

// clientBucket pairs a token bucket with the last time its client was seen.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters tracks one token bucket per client IP, sweeping idle
// entries so the map stays bounded over the process lifetime.
type clientLimiters struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(cfg RateLimitConfig) *clientLimiters {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.PerMinute
	}
	return &clientLimiters{
		buckets: make(map[string]*clientBucket),
		limit:   rate.Every(time.Minute / time.Duration(cfg.PerMinute)),
		burst:   burst,
		now:     time.Now,
	}
}

func (cl *clientLimiters) allow(clientIP string) bool {
	now := cl.now()

	cl.mu.Lock()
	if now.Sub(cl.lastSweep) >= limiterIdleTTL {
		cl.sweepLocked(now)
	}

	bucket, ok := cl.buckets[clientIP]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.buckets[clientIP] = bucket
	}
	bucket.lastSeen = now
	cl.mu.Unlock()

	return bucket.limiter.Allow()
}

func (cl *clientLimiters) sweepLocked(now time.Time) {
	for ip, bucket := range cl.buckets {
		if now.Sub(bucket.lastSeen) >= limiterIdleTTL {
			delete(cl.buckets, ip)
		}
	}
	cl.lastSweep = now
}

// rateLimitMiddleware rejects requests above the configured rate with 429.
func rateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.PerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := newClientLimiters(cfg)
	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Code:    "RATE_LIMIT_EXCEEDED",
				Message: "too many job starts, slow down",
			})
			return
		}
		c.Next()
	}
}
