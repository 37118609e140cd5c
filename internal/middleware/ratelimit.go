package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dywsy21/Cecilia/internal/pkg/response"
)

// Limiter answers whether a client may perform one more request within
// the window. Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) bool
}

// RateLimit enforces a per-IP request budget for one named endpoint.
// The verification surface uses separate budgets for create, verify and
// resend, so the endpoint name is part of the limiter key.
func RateLimit(l Limiter, endpoint string, limit int, window time.Duration, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" || l == nil {
			c.Next()
			return
		}
		key := fmt.Sprintf("cecilia:rate_limit:%s:%s", endpoint, ip)
		if !l.Allow(c.Request.Context(), key, limit, window) {
			response.TooManyRequests(c, message)
			return
		}
		c.Next()
	}
}

// RedisLimiter counts requests in fixed windows using INCR + PEXPIRE.
type RedisLimiter struct {
	rdb *redis.Client
}

// NewRedisLimiter wraps a redis client as a Limiter.
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

// Allow implements Limiter. Redis errors fail open so that a cache
// outage does not take the verification surface down with it.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	windowKey := fmt.Sprintf("%s:%d", key, time.Now().UnixNano()/int64(window))
	count, err := l.rdb.Incr(ctx, windowKey).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.rdb.PExpire(ctx, windowKey, window+time.Second)
	}
	return count <= int64(limit)
}

// MemoryLimiter keeps a sliding window of request timestamps per key.
// Used when no redis_url is configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	history map[string][]time.Time
	now     func() time.Time
}

// NewMemoryLimiter creates an in-process sliding-window limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	recent := l.history[key][:0]
	for _, t := range l.history[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= limit {
		l.history[key] = recent
		return false
	}
	l.history[key] = append(recent, now)
	return true
}

// Sweep drops keys whose entire history has aged out. Registered as a
// periodic job so an abusive scan cannot grow the map without bound.
func (l *MemoryLimiter) Sweep(maxWindow time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxWindow)
	removed := 0
	for key, times := range l.history {
		live := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				live = append(live, t)
			}
		}
		if len(live) == 0 {
			delete(l.history, key)
			removed++
			continue
		}
		l.history[key] = live
	}
	return removed
}
