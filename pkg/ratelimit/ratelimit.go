package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/opencrmhq/chatbridge/pkg/constant"
	"github.com/redis/go-redis/v9"
)

// Limiter bounds request volume per caller identity using a fixed window
// counter in Redis. It is constructed explicitly and injected where needed;
// window state expires on its own via key TTLs.
type Limiter struct {
	rdb    *redis.Client
	window time.Duration
	max    int64
}

// NewLimiter creates a new Limiter. max is the number of requests allowed
// per window for a single key.
func NewLimiter(rdb *redis.Client, window time.Duration, max int64) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 60
	}
	return &Limiter{rdb: rdb, window: window, max: max}
}

// windowKey builds the counter key for the current window
func (l *Limiter) windowKey(key string) string {
	window := time.Now().UnixMilli() / l.window.Milliseconds()
	return fmt.Sprintf(constant.RedisKeyRateLimit(), key, window)
}

// Check increments the caller's counter and reports whether the request
// is allowed. Redis errors fail open: availability over strictness.
func (l *Limiter) Check(ctx context.Context, key string) (bool, error) {
	redisKey := l.windowKey(key)

	pipe := l.rdb.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("ratelimit check failed: %w", err)
	}

	return incr.Val() <= l.max, nil
}

// Close releases resources held by the limiter. Counters are left to
// expire via TTL.
func (l *Limiter) Close() error {
	return nil
}
