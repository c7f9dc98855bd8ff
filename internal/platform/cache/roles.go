package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Principal is the cached authorization view of a user.
type Principal struct {
	Roles    []string `json:"roles"`
	IsActive bool     `json:"is_active"`
}

// PrincipalCache stores principals with a TTL. A miss returns (nil, nil).
type PrincipalCache interface {
	Get(ctx context.Context, userID string) (*Principal, error)
	Set(ctx context.Context, userID string, p *Principal) error
	Invalidate(ctx context.Context, userID string) error
}

type redisPrincipalCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPrincipalCache(rdb *redis.Client, ttl time.Duration) PrincipalCache {
	return &redisPrincipalCache{rdb: rdb, ttl: ttl}
}

func principalKey(userID string) string {
	return "principal:" + userID
}

func (c *redisPrincipalCache) Get(ctx context.Context, userID string) (*Principal, error) {
	raw, err := c.rdb.Get(ctx, principalKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redisPrincipalCache.Get: %w", err)
	}
	var p Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("redisPrincipalCache.Get decode: %w", err)
	}
	return &p, nil
}

func (c *redisPrincipalCache) Set(ctx context.Context, userID string, p *Principal) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redisPrincipalCache.Set encode: %w", err)
	}
	if err := c.rdb.Set(ctx, principalKey(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redisPrincipalCache.Set: %w", err)
	}
	return nil
}

func (c *redisPrincipalCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, principalKey(userID)).Err(); err != nil {
		return fmt.Errorf("redisPrincipalCache.Invalidate: %w", err)
	}
	return nil
}
