package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache shares snapshots across client instances. Values are stored as
// JSON, so readers get generic decoded values rather than their own types.
type redisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(config Config) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisCache{client: client}, nil
}

func (rc *redisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	result := rc.client.Get(ctx, key)
	if result.Err() != nil {
		return nil, false
	}

	var value interface{}
	if err := json.Unmarshal([]byte(result.Val()), &value); err != nil {
		return result.Val(), true
	}
	return value, true
}

func (rc *redisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return rc.client.Set(ctx, key, data, expiration).Err()
}

func (rc *redisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

func (rc *redisCache) Exists(ctx context.Context, key string) bool {
	return rc.client.Exists(ctx, key).Val() > 0
}

func (rc *redisCache) Clear(ctx context.Context) error {
	return rc.client.FlushDB(ctx).Err()
}

func (rc *redisCache) Close() error {
	return rc.client.Close()
}
