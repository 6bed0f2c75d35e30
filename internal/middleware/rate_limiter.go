// Package middleware holds HTTP middleware shared by the service binaries.
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// RateLimiter caps mutating requests per actor with a fixed one-minute
// window. Reads are never limited.
type RateLimiter struct {
	windows *xsync.Map[string, *rateLimitWindow]
	limit   int
	clock   func() time.Time
	logger  *slog.Logger
}

type rateLimitWindow struct {
	mu    sync.Mutex
	start time.Time
	count int
}

// pruneAbove is the window count at which stale windows are swept.
const pruneAbove = 10_000

// NewRateLimiter allows maxPerMinute writes per actor. clock may be nil.
func NewRateLimiter(maxPerMinute int, clock func() time.Time) *RateLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &RateLimiter{
		windows: xsync.NewMap[string, *rateLimitWindow](),
		limit:   maxPerMinute,
		clock:   clock,
		logger:  slog.Default().With("component", "ratelimit"),
	}
}

// Allow counts one request for key and reports whether it is within the
// limit.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.clock()
	w, _ := rl.windows.LoadOrStore(key, &rateLimitWindow{start: now})

	w.mu.Lock()
	if now.Sub(w.start) >= time.Minute {
		w.start = now
		w.count = 0
	}
	w.count++
	allowed := w.count <= rl.limit
	w.mu.Unlock()

	if rl.windows.Size() > pruneAbove {
		rl.prune(now)
	}
	return allowed
}

// prune drops windows idle for over two minutes.
func (rl *RateLimiter) prune(now time.Time) {
	rl.windows.Range(func(key string, w *rateLimitWindow) bool {
		w.mu.Lock()
		stale := now.Sub(w.start) > 2*time.Minute
		w.mu.Unlock()
		if stale {
			rl.windows.Delete(key)
		}
		return true
	})
}

// Middleware rejects writes over the limit with 429. The actor is the
// X-Actor header, falling back to the client address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-Actor")
		if key == "" {
			key = clientIP(r)
		}
		if !rl.Allow(key) {
			rl.logger.Warn("[RateLimit] limit exceeded", "actor", key, "limit", rl.limit)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(60))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded","retry_after_seconds":60}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
