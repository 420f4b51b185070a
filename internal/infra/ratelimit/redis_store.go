package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = time.Second

// RedisStore is a fixed-window counter shared by every gateway instance.
// The window of an identifier starts at its first request.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	window time.Duration
	max    int64
}

func NewRedisStore(client redis.Cmdable, prefix string, window time.Duration, max int) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		window: window,
		max:    int64(max),
	}
}

// Allow implements middleware.RateLimiterStore.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	key := s.prefix + identifier

	// EXPIRE NX runs on every request in the same MULTI, so a key that lost its TTL regains one.
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, s.window)

		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "redis incr")
	}

	return incr.Val() <= s.max, nil
}
