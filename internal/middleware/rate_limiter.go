package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/devmsrajput/yt-backend/internal/envelope"
)

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(key string) bool
}

// LimiterConfig allows Requests per Window for each key, plus Burst. Buckets idle for longer than
// Idle are forgotten.
type LimiterConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
	Idle     time.Duration
}

type bucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per key.
type KeyedLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewKeyedLimiter builds a limiter that admits cfg.Requests per cfg.Window for each key, with
// bursts of up to cfg.Burst. Keys unseen for cfg.Idle are forgotten.
func NewKeyedLimiter(cfg LimiterConfig) *KeyedLimiter {
	if cfg.Requests <= 0 {
		cfg.Requests = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Idle <= 0 {
		cfg.Idle = 10 * cfg.Window
	}
	return &KeyedLimiter{
		limit:   rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		burst:   cfg.Burst,
		idle:    cfg.Idle,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token from the bucket for key and reports whether the request may proceed.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	if now.Sub(l.lastSweep) > l.idle {
		l.sweepLocked(now)
	}
	l.mu.Unlock()

	return b.tokens.AllowN(now, 1)
}

// RetryAfter is how long a drained bucket takes to earn one token back.
func (l *KeyedLimiter) RetryAfter() time.Duration {
	if l.limit == rate.Inf || l.limit <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(time.Second) / float64(l.limit)))
}

// Len reports how many keys are tracked.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *KeyedLimiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// Throttle answers 429 once the client address has used up its allowance for scope. Each scope
// draws from its own buckets. A nil limiter lets everything through.
func Throttle(limiter RateLimiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(scope + "|" + clientAddr(r)) {
				if hinted, ok := limiter.(interface{ RetryAfter() time.Duration }); ok {
					if wait := hinted.RetryAfter(); wait > 0 {
						w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
					}
				}
				envelope.Error(r.Context(), w, http.StatusTooManyRequests, "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr is the host part of RemoteAddr. Behind a proxy the router rewrites RemoteAddr from the
// forwarding headers first.
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
