package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage stores the cart blob under "cart:<key>".
// A zero ttl keeps the value forever; otherwise up to maxJitter is added so
// many carts written together do not expire together.
type RedisStorage struct {
	client    *redis.Client
	ttl       time.Duration
	maxJitter time.Duration
}

func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		client:    client,
		ttl:       ttl,
		maxJitter: 5 * time.Minute,
	}
}

func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, storageKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, storageKey(key), value, r.expiration()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, storageKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) expiration() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMinutes := int(r.maxJitter / time.Minute)
	if jitterMinutes <= 0 {
		return r.ttl
	}
	return r.ttl + time.Duration(rand.Intn(jitterMinutes))*time.Minute
}

func storageKey(key string) string {
	return fmt.Sprintf("cart:%s", key)
}
