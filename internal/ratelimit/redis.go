package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter enforces per-endpoint limits through a shared Redis
// instance, so several processes watching the same booking site stay under
// one combined budget. Fixed one-minute windows via INCR + EXPIRE; the
// INCR is atomic, so concurrent callers can never both pass on the last
// token. Redis being unreachable fails open with a warning: losing the
// limiter should degrade to local behavior, not stop all checking.
type RedisLimiter struct {
	client    *redis.Client
	limits    map[string]Limit
	keyPrefix string
	log       *slog.Logger
}

func NewRedisLimiter(client *redis.Client, limits map[string]Limit, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLimiter{
		client:    client,
		limits:    limits,
		keyPrefix: "terminwatch:ratelimit",
		log:       log.With(slog.String("component", "ratelimit.redis")),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, endpoint string) bool {
	cfg, ok := l.limits[endpoint]
	if !ok || cfg.PerMinute <= 0 {
		return true
	}

	window := time.Now().UTC().Unix() / 60
	key := fmt.Sprintf("%s:%s:%d", l.keyPrefix, endpoint, window)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("redis rate limit check failed", slog.Any("err", err), slog.String("endpoint", endpoint))
		return true
	}

	return incr.Val() <= int64(cfg.PerMinute)
}
