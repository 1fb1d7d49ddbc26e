package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// bucketSweepInterval is how often stale per-IP buckets are swept.
	bucketSweepInterval = 5 * time.Minute

	// bucketStaleAfter is how long an IP can stay idle before its bucket
	// is dropped. Visitors who come back later simply start a fresh burst.
	bucketStaleAfter = 10 * time.Minute
)

// rateLimiter hands each visitor IP its own token bucket. The portfolio API is
// public and unauthenticated, so the IP is the only identity available.
// Stale buckets are swept inline during allow calls; no background goroutine.
type rateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*ipBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

// ipBucket pairs a token bucket with the time its IP was last seen.
type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newRateLimiter creates a per-IP limiter.
// r is tokens refilled per second; burst is the bucket size and initial allowance.
func newRateLimiter(r float64, burst int) *rateLimiter {
	return &rateLimiter{
		buckets:   make(map[string]*ipBucket),
		limit:     rate.Limit(r),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// allow reports whether a request from ip may proceed, spending one token.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	if now.Sub(rl.lastSweep) > bucketSweepInterval {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) > bucketStaleAfter {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[ip]
	if !ok {
		limiter := rate.NewLimiter(rl.limit, rl.burst)
		rl.buckets[ip] = &ipBucket{limiter: limiter, lastSeen: now}
		limiter.Allow()
		return true
	}

	b.lastSeen = now
	return b.limiter.Allow()
}

// rateLimitMiddleware rejects over-limit requests with 429 and a Retry-After
// hint. Every route shares one limiter, health probes excepted (they are
// mounted outside the middleware stack).
func rateLimitMiddleware(rl *rateLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			if !rl.allow(ip) {
				logger.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Retry-After", "1")
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the visitor IP used as the rate-limit key.
//
// With trustProxy set (the API normally sits behind the site's reverse
// proxy), X-Real-IP wins, then the first hop of X-Forwarded-For. Header
// values must parse as real IPs; anything else falls through so spoofed
// garbage cannot mint unlimited fresh buckets.
//
// Without trustProxy only RemoteAddr is used.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip.String()
			}
		}

		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			raw := xff
			if first, _, ok := strings.Cut(xff, ","); ok {
				raw = first
			}
			if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
				return ip.String()
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
