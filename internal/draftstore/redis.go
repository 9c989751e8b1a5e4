package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mutari/pkg/types"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "mutari:draft:"

// RedisStore keeps the draft as JSON under one redis key.
type RedisStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, id string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: redisKeyPrefix + id, ttl: ttl}
}

func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Load(ctx context.Context) (*types.Draft, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft from redis: %w", err)
	}

	var draft = new(types.Draft)
	if err := json.Unmarshal(data, draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft from redis: %w", err)
	}

	return draft, nil
}

func (s *RedisStore) Save(ctx context.Context, d *types.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	err = s.client.Set(ctx, s.key, data, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to write draft to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete draft from redis: %w", err)
	}
	return nil
}
