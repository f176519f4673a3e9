package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Redis shares windows between instances through INCR and EXPIRE.
type Redis struct {
	client redis.Cmdable
	limit  int
	period time.Duration
}

func NewRedis(client redis.Cmdable, limit int, period time.Duration) *Redis {
	return &Redis{
		client: client,
		limit:  limit,
		period: period,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	key = keyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.period)
		ttl = pipe.TTL(ctx, key)

		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("r.client.TxPipelined -> %w", err)
	}

	if incr.Val() > int64(r.limit) {
		retry := ttl.Val()
		if retry < 0 {
			retry = r.period
		}

		return false, retry, nil
	}

	return true, 0, nil
}
