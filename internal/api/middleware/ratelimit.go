package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sitetrust/internal/config"
	"sitetrust/internal/infrastructure/cache"
	"sitetrust/pkg/logger"
)

// RateLimiter returns middleware that limits requests per client. With a
// Redis cache the limit is a shared fixed window; without one each process
// keeps its own token buckets.
func RateLimiter(c *cache.RedisCache, cfg config.RateLimitConfig, log *logger.Logger) func(next http.Handler) http.Handler {
	log = log.WithComponent("ratelimit")
	local := newLocalLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			clientID := getClientID(r)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))

			if c == nil {
				if !local.allow(clientID) {
					w.Header().Set("Retry-After", "1")
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, resetTime, err := c.CheckRateLimit(
				r.Context(),
				clientID,
				int64(cfg.RequestsPerMinute),
				time.Minute,
			)
			if err != nil {
				// Fail open on Redis errors, but still bound the client locally
				log.Warn().Err(err).Msg("rate limit check failed, using local limiter")
				if !local.allow(clientID) {
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				retry := max(int64(time.Until(resetTime).Seconds()), 1)
				w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// localLimiter keeps one token bucket per client. Buckets idle long enough
// to have refilled are dropped, so the map only holds active clients.
type localLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*localBucket
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiter(cfg config.RateLimitConfig) *localLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	interval := time.Minute / time.Duration(rpm)
	return &localLimiter{
		limiters:  make(map[string]*localBucket),
		limit:     rate.Every(interval),
		burst:     burst,
		idleAfter: max(time.Duration(burst)*interval, time.Minute),
		now:       time.Now,
	}
}

func (l *localLimiter) allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleAfter {
		l.sweep(now)
	}

	b, ok := l.limiters[clientID]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[clientID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets that have been idle long enough to be full again.
// Callers hold mu.
func (l *localLimiter) sweep(now time.Time) {
	for id, b := range l.limiters {
		if now.Sub(b.lastSeen) >= l.idleAfter {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

func (l *localLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// getClientID returns a unique identifier for the client. RealIP has already
// resolved forwarding headers into RemoteAddr; the port is dropped because
// every new connection gets a fresh one.
func getClientID(r *http.Request) string {
	if apiKey := GetAPIKey(r.Context()); apiKey != "" {
		return fmt.Sprintf("key:%s", apiKey)
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	return fmt.Sprintf("ip:%s", host)
}
