// internal/cache/stats_cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/isp-broadcast/internal/model"
	"github.com/unclebandit/isp-broadcast/internal/service"
)

const statsKey = "broadcast:stats_snapshot"

// MemoryStatsCache keeps the snapshot for the life of the process.
type MemoryStatsCache struct {
	mu   sync.RWMutex
	snap *model.StatsSnapshot
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryStatsCache(ttl time.Duration) *MemoryStatsCache {
	return &MemoryStatsCache{ttl: ttl, now: time.Now}
}

func (c *MemoryStatsCache) Load(ctx context.Context) (*model.StatsSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil, nil
	}
	if c.ttl > 0 && c.now().Sub(c.snap.FetchedAt) > c.ttl {
		return nil, nil
	}
	cp := *c.snap
	return &cp, nil
}

func (c *MemoryStatsCache) Store(ctx context.Context, snap *model.StatsSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *snap
	c.snap = &cp
	return nil
}

// RedisStatsCache shares the snapshot between server instances.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{client: client, ttl: ttl}
}

func (c *RedisStatsCache) Load(ctx context.Context) (*model.StatsSnapshot, error) {
	data, err := c.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap model.StatsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *RedisStatsCache) Store(ctx context.Context, snap *model.StatsSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, data, c.ttl).Err()
}

var (
	_ service.StatsCache = (*MemoryStatsCache)(nil)
	_ service.StatsCache = (*RedisStatsCache)(nil)
)
