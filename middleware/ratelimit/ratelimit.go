// Package ratelimit throttles requests per client with a token bucket.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultPerMinute = 30
	DefaultBurst     = 10
	defaultIdleTTL   = 10 * time.Minute
)

type Config struct {
	PerMinute int
	Burst     int
	// KeyFunc picks the bucket for a request, client IP by default
	KeyFunc func(*fiber.Ctx) string
	// LimitReached renders the rejection, 429 JSON by default
	LimitReached fiber.Handler
	// IdleTTL is how long an unused bucket is kept
	IdleTTL time.Duration
	Now     func() time.Time
}

func New(config ...Config) fiber.Handler {
	cfg := defaultConfig(config...)
	limiter := newTokenLimiter(cfg.PerMinute, cfg.Burst, cfg.IdleTTL, cfg.Now)

	return func(c *fiber.Ctx) error {
		key := cfg.KeyFunc(c)
		if key != "" && !limiter.allow(key) {
			return cfg.LimitReached(c)
		}
		return c.Next()
	}
}

func defaultConfig(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.PerMinute <= 0 {
		cfg.PerMinute = DefaultPerMinute
	}

	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}

	if cfg.LimitReached == nil {
		cfg.LimitReached = func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later",
				"code":  "RATE_LIMITED",
			})
		}
	}

	return cfg
}

// ClientIP keys buckets by c.IP(). Forwarding headers count only when the
// app is configured with a ProxyHeader and the peer is a trusted proxy.
func ClientIP(c *fiber.Ctx) string {
	return c.IP()
}

type tokenLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newTokenLimiter(perMinute, burst int, idleTTL time.Duration, now func() time.Time) *tokenLimiter {
	return &tokenLimiter{
		limit:     rate.Limit(float64(perMinute) / 60.0),
		burst:     burst,
		idleTTL:   idleTTL,
		now:       now,
		buckets:   make(map[string]*bucket),
		lastSweep: now(),
	}
}

func (l *tokenLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now

	return b.limiter.AllowN(now, 1)
}

func (l *tokenLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.seen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
