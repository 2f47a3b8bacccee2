package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store kept in a Redis server so several hosts can share one session.
// Keys are namespaced with a prefix and stored without expiry; the server rejects stale tokens.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// DefaultRedisPrefix namespaces the keys written by NewRedis when no prefix is given.
const DefaultRedisPrefix = "kit8:session:"

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

// NewRedisFromURL connects using a redis:// or rediss:// URL.
func NewRedisFromURL(rawURL, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedis(redis.NewClient(opts), prefix), nil
}

func (r *Redis) Get(key string) (string, error) {
	value, err := r.rdb.Get(context.Background(), r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s from redis: %w", key, err)
	}
	return value, nil
}

func (r *Redis) Set(key, value string) error {
	if err := r.rdb.Set(context.Background(), r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s to redis: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(key string) error {
	if err := r.rdb.Del(context.Background(), r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from redis: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
