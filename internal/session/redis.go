package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisManager shares sessions between API replicas. Keys are session:<id>:<key>.
type RedisManager struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisManager(client *redis.Client, ttl time.Duration) *RedisManager {
	return &RedisManager{client: client, ttl: ttl}
}

func (m *RedisManager) Open(sessionID string) Store {
	return &redisStore{client: m.client, ttl: m.ttl, prefix: "session:" + sessionID + ":"}
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session key %s: %w", key, err)
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session key %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to remove session key %s: %w", key, err)
	}
	return nil
}
