package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig configures a global token bucket limiter.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// RateLimitMiddleware applies one shared token bucket across all requests.
// Per-client fairness is left to the reverse proxy in front of the service.
func RateLimitMiddleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	bucket := newTokenBucket(cfg.RPS, cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !bucket.take() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = fmt.Fprint(w, `{"error":"rate limit exceeded"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// tokenBucket refills lazily on each take; a non-positive rate or burst
// disables limiting rather than rejecting everything.
type tokenBucket struct {
	mu       sync.Mutex
	rate     float64
	capacity float64
	level    float64
	refilled time.Time
}

func newTokenBucket(rps float64, burst int) *tokenBucket {
	b := &tokenBucket{refilled: time.Now()}
	if rps > 0 && burst > 0 {
		b.rate = rps
		b.capacity = float64(burst)
		b.level = b.capacity
	}
	return b
}

func (b *tokenBucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.capacity == 0 {
		return true
	}

	now := time.Now()
	if elapsed := now.Sub(b.refilled).Seconds(); elapsed > 0 {
		b.level = min(b.capacity, b.level+elapsed*b.rate)
		b.refilled = now
	}
	if b.level < 1 {
		return false
	}
	b.level--
	return true
}
