// Package cache keeps session carts in Redis so several storefront instances can share
// them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"shopfront/internal/cart"
)

const baseTTL = 24 * time.Hour

// RedisCartStore satisfies cart.Store. Each save refreshes the key's TTL, so an idle
// session's cart expires on its own.
type RedisCartStore struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

var _ cart.Store = (*RedisCartStore)(nil)

func NewRedisCartStore(client redis.UniversalClient) *RedisCartStore {
	return &RedisCartStore{client: client, baseTTL: baseTTL}
}

type storedCart struct {
	Items     []cart.Item `json:"items"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func (r *RedisCartStore) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var sc storedCart
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return cart.FromItems(sc.Items), nil
}

func (r *RedisCartStore) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	if c.Len() == 0 {
		return r.Delete(ctx, sessionID)
	}
	data, err := json.Marshal(storedCart{Items: c.Items(), UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	jitter := time.Duration(rand.Intn(60)) * time.Minute
	if err := r.client.Set(ctx, cacheKey(sessionID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCartStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cacheKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
