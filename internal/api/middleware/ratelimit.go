package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/taskboard/internal/api/respond"
	"github.com/good-yellow-bee/taskboard/internal/metrics"
)

// idleTTL is how long an unused key keeps its bucket.
const idleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out a token bucket per key.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter creates a new rate limiter.
// limit is requests per minute; the bucket allows the whole minute's
// budget as a burst. A limit of 0 or less disables limiting.
func NewRateLimiter(limit int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Inf,
		now:      time.Now,
	}
	if limit > 0 {
		rl.limit = rate.Every(time.Minute / time.Duration(limit))
		rl.burst = limit
	}
	return rl
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit == rate.Inf {
		return true
	}

	rl.mu.Lock()
	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Run evicts idle keys until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleTTL)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

func rejectRateLimited(w http.ResponseWriter, scope string) {
	metrics.HTTPRateLimitedTotal.WithLabelValues(scope).Inc()
	w.Header().Set("Retry-After", "60")
	respond.Err(w, respond.ErrRateLimited)
}

// RateLimitByIP returns middleware that rate limits by client IP.
func RateLimitByIP(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow("ip:" + getClientIP(r)) {
				rejectRateLimited(w, "ip")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByUser returns middleware that rate limits by authenticated user,
// falling back to the client IP for anonymous requests.
func RateLimitByUser(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + getClientIP(r)
			if id := GetUserID(r.Context()); id != 0 {
				key = "user:" + strconv.FormatInt(id, 10)
			}
			if !limiter.Allow(key) {
				rejectRateLimited(w, "user")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP returns the connection address of the request. Forwarding
// headers are honoured only when chi's RealIP middleware has already
// rewritten RemoteAddr from them.
func getClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
