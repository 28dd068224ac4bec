package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const latestSnapshotKey = "ledger:snapshot:latest"

// SnapshotCache implements ports.SnapshotCache using Redis. Only the newest
// snapshot payload is cached; history lives in PostgreSQL.
type SnapshotCache struct {
	client *goredis.Client
}

// NewSnapshotCache creates a new Redis-backed snapshot cache.
func NewSnapshotCache(client *goredis.Client) *SnapshotCache {
	return &SnapshotCache{client: client}
}

// SetLatest stores the latest snapshot payload with TTL. A zero TTL means the
// entry does not expire.
func (c *SnapshotCache) SetLatest(ctx context.Context, payload []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, latestSnapshotKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis snapshot set: %w", err)
	}
	return nil
}

// GetLatest retrieves the cached snapshot payload.
// Returns nil, nil on cache miss.
func (c *SnapshotCache) GetLatest(ctx context.Context) ([]byte, error) {
	val, err := c.client.Get(ctx, latestSnapshotKey).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis snapshot get: %w", err)
	}
	return val, nil
}
