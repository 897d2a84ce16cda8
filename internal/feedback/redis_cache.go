package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"peerprep/questiongen/internal/models"
)

const redisKeyPrefix = "questiongen:feedback:ctx:"

// RedisContextCache shares request contexts between replicas; expiry is
// left to Redis.
type RedisContextCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisContextCache(rdb *redis.Client, ttl time.Duration) *RedisContextCache {
	return &RedisContextCache{rdb: rdb, ttl: ttl}
}

func (rc *RedisContextCache) Set(ctx context.Context, reqCtx *models.RequestContext) error {
	data, err := json.Marshal(reqCtx)
	if err != nil {
		return fmt.Errorf("failed to encode request context: %w", err)
	}
	if err := rc.rdb.Set(ctx, redisKeyPrefix+reqCtx.RequestID, data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache request context: %w", err)
	}
	return nil
}

func (rc *RedisContextCache) Get(ctx context.Context, requestID string) (*models.RequestContext, error) {
	data, err := rc.rdb.Get(ctx, redisKeyPrefix+requestID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrContextNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request context: %w", err)
	}

	var reqCtx models.RequestContext
	if err := json.Unmarshal(data, &reqCtx); err != nil {
		return nil, fmt.Errorf("failed to decode request context: %w", err)
	}
	return &reqCtx, nil
}

func (rc *RedisContextCache) Delete(ctx context.Context, requestID string) error {
	return rc.rdb.Del(ctx, redisKeyPrefix+requestID).Err()
}

// Size counts cached contexts; it returns -1 when Redis cannot be read.
func (rc *RedisContextCache) Size(ctx context.Context) int {
	count := 0
	iter := rc.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if iter.Err() != nil {
		return -1
	}
	return count
}
