package codes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix namespaces code keys in Redis
const DefaultKeyPrefix = "otp:"

// RedisStore keeps codes in Redis so every instance sees the same code.
// SET with EX replaces the value and its expiry atomically.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis-backed code store. A non-positive ttl uses DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration, prefix string) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, ttl: ttl, prefix: prefix}
}

// Store saves code under key, replacing any existing code
func (s *RedisStore) Store(ctx context.Context, key, code string) error {
	if err := s.client.Set(ctx, s.prefix+key, code, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	return nil
}

// Get returns the live code for key
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	code, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get code: %w", err)
	}
	return code, true, nil
}

// Remove deletes the code for key
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to remove code: %w", err)
	}
	return nil
}
