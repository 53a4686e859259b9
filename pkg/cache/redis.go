package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces result cache keys in Redis.
const DefaultRedisPrefix = "reqstate:result:"

// RedisStore is a Store backed by Redis.
//
// Entries are written without expiry so they share the lifetime of the
// Redis database rather than the process.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store using DefaultRedisPrefix.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return NewRedisStoreWithPrefix(redisClient, DefaultRedisPrefix)
}

// NewRedisStoreWithPrefix creates a Redis-backed store whose keys are
// namespaced by prefix.
func NewRedisStoreWithPrefix(redisClient *redis.Client, prefix string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return data, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, payload []byte) error {
	// Zero expiration keeps the key until it is cleared.
	if err := s.redis.Set(ctx, s.redisKey(key), payload, 0).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Has implements Store.
func (s *RedisStore) Has(ctx context.Context, key string) bool {
	n, err := s.redis.Exists(ctx, s.redisKey(key)).Result()
	if err != nil {
		CacheErrors.WithLabelValues("exists").Inc()
		return false
	}
	return n > 0
}

// Clear implements Store. It deletes every key under the store prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.redis.Scan(ctx, 0, s.prefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("redis scan: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
