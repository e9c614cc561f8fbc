package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCacheHandler is the production CacheHandler, backed by a shared
// *redis.Client built once at startup and passed in (spec §9, "Global
// dependency graph" — no field-injected singletons).
type RedisCacheHandler struct {
	redis *redis.Client
}

func NewRedisCacheHandler(client *redis.Client) CacheHandler {
	return &RedisCacheHandler{redis: client}
}

func (r *RedisCacheHandler) Get(key string) (string, error) {
	val, err := r.redis.Get(context.Background(), key).Result()
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisCacheHandler) Set(key string, value string, ttl time.Duration) error {
	return r.redis.Set(context.Background(), key, value, ttl).Err()
}

func (r *RedisCacheHandler) Delete(key string) error {
	return r.redis.Del(context.Background(), key).Err()
}

// SetNX is the atomic set-if-absent primitive backing tryClaim (spec §4.1).
func (r *RedisCacheHandler) SetNX(key string, value string, ttl time.Duration) (bool, error) {
	ok, err := r.redis.SetNX(context.Background(), key, value, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
