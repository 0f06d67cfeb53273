package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter counts requests per key in a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Quota is a per-endpoint request budget.
type Quota struct {
	Limit  int
	Window time.Duration
}

// RateLimit enforces a per-client-IP quota. Limiter failures fail open so a
// Redis outage never takes authentication down with it.
func RateLimit(l Limiter, name string, q Quota) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", name, c.ClientIP())
		ok, err := l.Allow(c.Request.Context(), key, q.Limit, q.Window)
		if err != nil {
			log.Printf("[RateLimit] %s: %v", name, err)
			c.Next()
			return
		}
		if !ok {
			writeError(c, http.StatusTooManyRequests, "common.rate_limited", "too many requests, slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedisLimiter is the shared fixed-window counter used when Redis is
// configured, so the quota holds across replicas.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// LocalLimiter is the in-process fallback for single-instance deployments
// and development.
type LocalLimiter struct {
	mu      sync.Mutex
	windows map[string]*localWindow
	now     func() time.Time
}

type localWindow struct {
	count   int
	resetAt time.Time
}

func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		windows: make(map[string]*localWindow),
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &localWindow{count: 1, resetAt: now.Add(window)}
		return true, nil
	}
	w.count++
	return w.count <= limit, nil
}
