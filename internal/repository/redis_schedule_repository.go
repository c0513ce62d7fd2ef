package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/class-schedule-api/internal/models"
)

// RedisScheduleRepository keeps the schedule store as one JSON value in Redis.
type RedisScheduleRepository struct {
	client redis.Cmdable
	key    string
	logger *zap.Logger
}

// NewRedisScheduleRepository constructs the repository.
func NewRedisScheduleRepository(client redis.Cmdable, key string, logger *zap.Logger) *RedisScheduleRepository {
	if key == "" {
		key = "schedule:store"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisScheduleRepository{client: client, key: key, logger: logger}
}

// Load reads the store; an absent or undecodable value is an empty store.
func (r *RedisScheduleRepository) Load(ctx context.Context) (models.ScheduleStore, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.NewScheduleStore(), nil
		}
		return models.ScheduleStore{}, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var store models.ScheduleStore
	if err := json.Unmarshal(raw, &store); err != nil {
		r.logger.Warn("schedule value is corrupt, starting empty", zap.String("key", r.key), zap.Error(err))
		return models.NewScheduleStore(), nil
	}
	return store, nil
}

// Save replaces the stored value.
func (r *RedisScheduleRepository) Save(ctx context.Context, store models.ScheduleStore) error {
	payload, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("encode schedule value: %w", err)
	}
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

// Clear deletes the stored value.
func (r *RedisScheduleRepository) Clear(ctx context.Context) (bool, error) {
	removed, err := r.client.Del(ctx, r.key).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete %s: %w", r.key, err)
	}
	return removed > 0, nil
}
