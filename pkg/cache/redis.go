package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/azdiagram/pkg/errors"
)

// KeyPrefix namespaces every key written to Redis.
const KeyPrefix = "azdiagram:"

// RedisCache shares entries between server replicas.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to url (redis://host:port/db) and pings the server.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeBackendUnavailable, err, "connect to redis at %s", opts.Addr)
	}
	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get fetches an entry; redis.Nil is a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores an entry with Redis-side expiry.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, KeyPrefix+key, data, ttl).Err()
}

// Delete removes an entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, KeyPrefix+key).Err()
}

// clearBatch is the SCAN page size used by Clear.
const clearBatch = 500

// Clear deletes every key under [KeyPrefix] and returns how many were
// removed. Keys written by other applications on the same server are kept.
func (c *RedisCache) Clear(ctx context.Context) (int, error) {
	n := 0
	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", clearBatch).Iterator()
	batch := make([]string, 0, clearBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		deleted, err := c.client.Del(ctx, batch...).Result()
		n += int(deleted)
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatch {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return n, err
	}
	return n, flush()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var (
	_ Cache   = (*RedisCache)(nil)
	_ Clearer = (*RedisCache)(nil)
)
