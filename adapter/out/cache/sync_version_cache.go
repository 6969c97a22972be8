// Package cache implements Redis-backed adapters.
package cache

import (
	"context"
	"fmt"
	"time"

	"sync_server/core/domain"
	"sync_server/core/port/out"

	"github.com/redis/go-redis/v9"
)

// versionTTL bounds how long an observed version stays cached. Devices
// re-read on miss, so a short TTL only costs an extra fetch.
const versionTTL = 24 * time.Hour

// VersionCache implements out.VersionCache using Redis.
type VersionCache struct {
	client *redis.Client
}

// NewVersionCache creates a new Redis version cache.
func NewVersionCache(client *redis.Client) out.VersionCache {
	return &VersionCache{client: client}
}

func versionKey(kind domain.EntityKind, id int64) string {
	return fmt.Sprintf("version:%s:%d", kind, id)
}

func (c *VersionCache) GetVersion(ctx context.Context, kind domain.EntityKind, id int64) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(kind, id)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

func (c *VersionCache) SetVersion(ctx context.Context, kind domain.EntityKind, id int64, version int64) error {
	if err := c.client.Set(ctx, versionKey(kind, id), version, versionTTL).Err(); err != nil {
		return fmt.Errorf("set version: %w", err)
	}
	return nil
}

func (c *VersionCache) Invalidate(ctx context.Context, kind domain.EntityKind, id int64) error {
	if err := c.client.Del(ctx, versionKey(kind, id)).Err(); err != nil {
		return fmt.Errorf("invalidate version: %w", err)
	}
	return nil
}
