package compliance

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const robotsKeyPrefix = "provimport:robots:"

// RedisCache shares robots.txt decisions between service instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns found=false when the origin has no unexpired decision.
func (c *RedisCache) Get(ctx context.Context, origin string) (allowed, found bool, err error) {
	val, err := c.client.Get(ctx, robotsKeyPrefix+origin).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

func (c *RedisCache) Set(ctx context.Context, origin string, allowed bool, ttl time.Duration) error {
	val := "0"
	if allowed {
		val = "1"
	}
	return c.client.Set(ctx, robotsKeyPrefix+origin, val, ttl).Err()
}
