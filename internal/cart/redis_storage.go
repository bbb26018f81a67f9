package cart

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/infrastructure/redis"
)

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(key string) string
}

// RedisStorage keeps carts in Redis so several storefront processes can share
// them. A zero ttl keeps carts until they are cleared.
type RedisStorage struct {
	kv  redisKV
	ttl time.Duration
}

func NewRedisStorage(kv redisKV, ttl time.Duration) *RedisStorage {
	return &RedisStorage{kv: kv, ttl: ttl}
}

func (r *RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := r.kv.Get(ctx, r.kv.CartKey(key))
	if redis.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart from redis: %w", err)
	}
	return []byte(value), nil
}

func (r *RedisStorage) Save(ctx context.Context, key string, data []byte) error {
	if err := r.kv.Set(ctx, r.kv.CartKey(key), string(data), r.ttl); err != nil {
		return fmt.Errorf("saving cart to redis: %w", err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := r.kv.Del(ctx, r.kv.CartKey(key)); err != nil {
		return fmt.Errorf("deleting cart from redis: %w", err)
	}
	return nil
}
