package lockout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shahid/internal/ratelimit/models"
)

const lockoutKeyPrefix = "rl:"

// RedisStore shares failure records across replicas. Records are stored as
// JSON with the TTL delegated to Redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.FailureRecord, error) {
	raw, err := s.client.Get(ctx, lockoutKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failure record: %w", err)
	}

	var record models.FailureRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode failure record: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, record *models.FailureRecord, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode failure record: %w", err)
	}
	if err := s.client.Set(ctx, lockoutKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put failure record: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, lockoutKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete failure record: %w", err)
	}
	return nil
}
