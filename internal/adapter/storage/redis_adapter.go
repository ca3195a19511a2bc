package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "inventory:req:"
	idempotencyKeyTTL    = 24 * time.Hour
)

// RedisAdapter backs the request-idempotency guard for stock additions.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

// SetIdempotency claims a request key with SETNX. Returns false if an
// earlier request already claimed it.
func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
}
