package reccache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the shared-backend variant of Cache (spec.md §9). Redis'
// own TTL provides expiry; eviction at N_cache does not apply since a
// shared Redis instance is assumed to be sized for the deployment.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration, prefix string) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}
}

func (c *RedisCache) key(k string) string { return c.prefix + ":resp:" + k }

func (c *RedisCache) sessionSetKey(sessionID string) string { return c.prefix + ":sess:" + sessionID }

// Get returns the cached response, or (nil, false) on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Put stores value under key, indexed under sessionID's set for
// InvalidateSession.
func (c *RedisCache) Put(ctx context.Context, key, sessionID string, value []byte) error {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		return err
	}
	if err := c.client.SAdd(ctx, c.sessionSetKey(sessionID), key).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, c.sessionSetKey(sessionID), c.ttl).Err()
}

// InvalidateSession deletes every response key a session's set tracks.
func (c *RedisCache) InvalidateSession(ctx context.Context, sessionID string) error {
	setKey := c.sessionSetKey(sessionID)
	keys, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, setKey).Err()
}

// Clear flushes every cache entry under this cache's prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+":*", 200).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
