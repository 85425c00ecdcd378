// Package ratelimit bounds how often one client may submit applications.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"cashflow-loans/internal/common/config"
	"cashflow-loans/internal/common/errors"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/common/metrics"
)

const (
	keyPrefix    = "ratelimit:"
	defaultTTL   = 5 * time.Minute
	redisTimeout = 200 * time.Millisecond
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key. When a Redis client is set the
// remaining tokens are mirrored there so a restarted instance resumes from
// the last known state.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	redis    redis.Cmdable
	logger   logger.Logger
	now      func() time.Time
}

type Option func(*Limiter)

// WithRedis mirrors bucket state into client.
func WithRedis(client redis.Cmdable) Option {
	return func(l *Limiter) { l.redis = client }
}

// WithTTL sets how long an idle bucket is kept.
func WithTTL(ttl time.Duration) Option {
	return func(l *Limiter) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New builds a limiter allowing perMinute events per key with the given burst.
func New(perMinute float64, burst int, log logger.Logger, opts ...Option) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	l := &Limiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		ttl:      defaultTTL,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromConfig returns nil when rate limiting is disabled.
func FromConfig(cfg config.RateLimitConfig, client redis.Cmdable, log logger.Logger) *Limiter {
	if !cfg.Enabled {
		return nil
	}
	var opts []Option
	if cfg.UseRedis && client != nil {
		opts = append(opts, WithRedis(client))
	}
	return New(cfg.RequestsPerMinute, cfg.Burst, log, opts...)
}

// Allow reports whether key may proceed now and consumes a token if so.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	now := l.now()
	lim := l.get(ctx, key, now)

	allowed := lim.AllowN(now, 1)
	if l.redis != nil {
		l.store(ctx, key, lim.TokensAt(now))
	}
	if !allowed {
		metrics.RateLimited.Inc()
	}
	return allowed
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *Limiter) get(ctx context.Context, key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	if e, ok := l.limiters[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	lim := rate.NewLimiter(l.limit, l.burst)
	if remaining, ok := l.load(ctx, key); ok && remaining < l.burst {
		lim.AllowN(now, l.burst-remaining)
		l.logger.Debug("Rate limiter restored from Redis", map[string]interface{}{
			"key":       key,
			"remaining": remaining,
		})
	}
	l.limiters[key] = &entry{limiter: lim, lastSeen: now}
	return lim
}

func (l *Limiter) sweepLocked(now time.Time) {
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.ttl {
			delete(l.limiters, key)
		}
	}
}

func (l *Limiter) load(ctx context.Context, key string) (int, bool) {
	if l.redis == nil {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	val, err := l.redis.Get(ctx, keyPrefix+key).Int()
	if err != nil {
		if err != redis.Nil {
			l.logger.Warn("Failed to read rate limit state from Redis", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return 0, false
	}
	if val < 0 {
		val = 0
	}
	return val, true
}

func (l *Limiter) store(ctx context.Context, key string, tokens float64) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if tokens < 0 {
		tokens = 0
	}
	remaining := strconv.Itoa(int(tokens))
	if err := l.redis.Set(ctx, keyPrefix+key, remaining, l.ttl).Err(); err != nil {
		l.logger.Warn("Failed to write rate limit state to Redis", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// Middleware rejects requests over the limit with a RATE_LIMITED error keyed
// on the client IP.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if key == "" {
			key = "unknown"
		}
		if !l.Allow(c.UserContext(), key) {
			l.logger.Warn("Rate limit exceeded", map[string]interface{}{"ip": key})
			return errors.NewRateLimitedError(key)
		}
		return c.Next()
	}
}
