package generation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "generations:history:"

// Cache keeps a short lived per-user copy of the generation history in Redis.
// It is read-through only: misses and Redis failures fall back to the
// repository, writes invalidate the key.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(userID uuid.UUID) string {
	return cacheKeyPrefix + userID.String()
}

// GetHistory returns the cached history for a user, reporting a miss when the
// key is absent or unreadable.
func (c *Cache) GetHistory(ctx context.Context, userID uuid.UUID) ([]Generation, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var list []Generation
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, false
	}
	return list, true
}

// SetHistory stores the history list for a user.
func (c *Cache) SetHistory(ctx context.Context, userID uuid.UUID, list []Generation) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(userID), payload, c.ttl).Err()
}

// Invalidate drops the cached history for a user.
func (c *Cache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
