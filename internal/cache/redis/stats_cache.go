package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tera-rewards-backend/internal/service/stats"
)

const statsKey = "rewards:stats:admin"

// StatsCache keeps the admin dashboard snapshot in Redis for a short TTL.
type StatsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ stats.Cache = (*StatsCache)(nil)

func NewStatsCache(client redis.Cmdable, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot; a miss is reported as (nil, nil).
func (c *StatsCache) Get(ctx context.Context) (*stats.Snapshot, error) {
	v, err := c.client.Get(ctx, statsKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s stats.Snapshot
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Set stores the snapshot.
func (c *StatsCache) Set(ctx context.Context, s *stats.Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, b, c.ttl).Err()
}

// Invalidate drops the cached snapshot.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, statsKey).Err()
}
