package store

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisKey is the hash that holds all settings.
const DefaultRedisKey = "blockphrase:storage"

// RedisKV stores settings as fields of one Redis hash.
type RedisKV struct {
	client *redis.Client
	key    string
}

// OpenRedis connects to the Redis server at url and pings it.
func OpenRedis(ctx context.Context, url string) (*RedisKV, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisKV(client, DefaultRedisKey), nil
}

// NewRedisKV wraps an existing client. key names the hash.
func NewRedisKV(client *redis.Client, key string) *RedisKV {
	return &RedisKV{client: client, key: key}
}

// Get implements KV.
func (r *RedisKV) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := r.client.HMGet(ctx, r.key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read settings from redis: %w", err)
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// Set implements KV. HSET writes all fields atomically.
func (r *RedisKV) Set(ctx context.Context, items map[string]string) error {
	if len(items) == 0 {
		return nil
	}

	values := make([]any, 0, len(items)*2)
	for k, v := range items {
		values = append(values, k, v)
	}
	if err := r.client.HSet(ctx, r.key, values...).Err(); err != nil {
		return fmt.Errorf("failed to write settings to redis: %w", err)
	}
	return nil
}

// Delete implements KV.
func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, r.key, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete settings from redis: %w", err)
	}
	return nil
}

// Close implements KV.
func (r *RedisKV) Close() error {
	return r.client.Close()
}
