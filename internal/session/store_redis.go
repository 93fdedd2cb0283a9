package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paras/internal/config"
	"paras/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a Redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "paras:session:" + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := s.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session from redis: %w", err)
	}

	var record models.SessionRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Put(ctx context.Context, record *models.SessionRecord) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := s.ttl
	if !record.ExpiresAt.IsZero() {
		if until := time.Until(record.ExpiresAt); until > 0 {
			ttl = until
		}
	}
	if err := s.client.Set(ctx, sessionKey(record.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("set session in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session from redis: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
