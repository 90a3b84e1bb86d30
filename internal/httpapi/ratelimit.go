package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides per-client rate limiting for the two read
// endpoints, adapted from the teacher's per-IP DNS query limiter: same
// token-bucket-per-IP map shape, swapped from a query-allow check to an
// HTTP middleware.
type RateLimiter struct {
	mu              sync.Mutex
	limitersByIP    map[string]*rate.Limiter
	queriesPerSec   rate.Limit
	burstSize       int
	cleanupInterval time.Duration
	lastCleanup     time.Time
}

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
}

// DefaultRateLimiterConfig returns sensible defaults for a low-traffic
// read-only registry mirror.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewRateLimiter builds a RateLimiter. A nil *RateLimiter is valid and
// allows every request (used by handlers that don't want limiting, e.g.
// tests), matching (*T)(nil) method call safety.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		limitersByIP:    make(map[string]*rate.Limiter),
		queriesPerSec:   rate.Limit(cfg.RequestsPerSecond),
		burstSize:       cfg.BurstSize,
		cleanupInterval: cfg.CleanupInterval,
		lastCleanup:     time.Now(),
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip net.IP) bool {
	if rl == nil || ip == nil {
		return true
	}

	key := ip.String()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) > rl.cleanupInterval {
		rl.limitersByIP = make(map[string]*rate.Limiter)
		rl.lastCleanup = time.Now()
	}

	limiter, ok := rl.limitersByIP[key]
	if !ok {
		limiter = rate.NewLimiter(rl.queriesPerSec, rl.burstSize)
		rl.limitersByIP[key] = limiter
	}
	return limiter.Allow()
}

// wrap applies rate limiting in front of next. A nil receiver passes every
// request through unlimited.
func (rl *RateLimiter) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.WriteHeader(http.StatusTooManyRequests)
			requestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(http.StatusTooManyRequests)).Inc()
			return
		}
		next(w, r)
	}
}
