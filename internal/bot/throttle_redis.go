package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisThrottlePrefix = "filmbot:throttle:"

// RedisThrottle counts messages per chat in fixed windows shared by all bot
// replicas. When Redis is unreachable it defers to fallback.
type RedisThrottle struct {
	client   *redis.Client
	limit    int64
	window   time.Duration
	fallback Throttle
	logger   *slog.Logger
	now      func() time.Time
}

func NewRedisThrottle(client *redis.Client, perWindow int, window time.Duration, fallback Throttle, logger *slog.Logger) *RedisThrottle {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisThrottle{
		client:   client,
		limit:    int64(perWindow),
		window:   window,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *RedisThrottle) Allow(ctx context.Context, chatID int64) bool {
	if r.limit <= 0 {
		return true
	}
	bucket := r.now().UnixNano() / int64(r.window)
	key := fmt.Sprintf("%s%d:%d", redisThrottlePrefix, chatID, bucket)

	var incr *redis.IntCmd
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, r.window)
		return nil
	})
	if err != nil {
		r.logger.Debug("redis throttle unavailable", slog.String("error", err.Error()))
		if r.fallback != nil {
			return r.fallback.Allow(ctx, chatID)
		}
		return true
	}
	return incr.Val() <= r.limit
}

func (r *RedisThrottle) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
