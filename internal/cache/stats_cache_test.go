package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/isp-broadcast/internal/model"
)

func TestMemoryStatsCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStatsCache(0)

	snap, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	require.NoError(t, c.Store(ctx, &model.StatsSnapshot{Customers: model.CustomerStats{Total: 9, Active: 4}}))
	snap, err = c.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 4, snap.Customers.Active)
}

func TestMemoryStatsCache_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c := NewMemoryStatsCache(10 * time.Minute)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Store(ctx, &model.StatsSnapshot{FetchedAt: now}))

	now = now.Add(5 * time.Minute)
	snap, _ := c.Load(ctx)
	assert.NotNil(t, snap)

	now = now.Add(6 * time.Minute)
	snap, _ = c.Load(ctx)
	assert.Nil(t, snap)
}

func TestRedisStatsCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := NewRedisStatsCache(client, 10*time.Minute)

	snap, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := &model.StatsSnapshot{
		Customers: model.CustomerStats{Total: 30, Active: 25},
		Regions:   []model.RegionStat{{ID: "north", Name: "North", CustomerCount: 14, ActiveCount: 10}},
		FetchedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.Store(ctx, want))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Customers, got.Customers)
	assert.Equal(t, want.Regions, got.Regions)
	assert.True(t, want.FetchedAt.Equal(got.FetchedAt))
	assert.Equal(t, 10*time.Minute, mr.TTL(statsKey))

	mr.FastForward(11 * time.Minute)
	snap, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRedisStatsCache_CorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, mr.Set(statsKey, "not json"))

	_, err := NewRedisStatsCache(client, time.Minute).Load(context.Background())
	assert.Error(t, err)
}
