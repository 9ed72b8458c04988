package cache

import (
	"context"
	"testing"
	"time"

	"crm-insight/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() *models.Dataset {
	return &models.Dataset{
		Orders: []models.Order{{
			CustomerID: "101",
			Product:    "Arroz",
			Quantity:   3,
			UnitPrice:  45.5,
			OrderDate:  time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
		}},
		Deliveries: []models.Delivery{{
			CustomerID:   "101",
			DeliveryDate: time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC),
		}},
		Customers: []models.Customer{{ID: "101", Name: "Colmado Juan", Zone: "1"}},
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	_, ok, err := c.Get(ctx, "sheet")
	require.NoError(t, err)
	assert.False(t, ok)

	ds := sampleDataset()
	require.NoError(t, c.Set(ctx, "sheet", ds))

	got, ok, err := c.Get(ctx, "sheet")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, ds, got)

	require.NoError(t, c.Invalidate(ctx, "sheet"))
	_, ok, _ = c.Get(ctx, "sheet")
	assert.False(t, ok)
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "sheet", sampleDataset()))

	now = now.Add(59 * time.Second)
	_, ok, _ := c.Get(ctx, "sheet")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = c.Get(ctx, "sheet")
	assert.False(t, ok)
}

func TestMemoryCacheEvictKeepsReplacedEntry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "sheet", sampleDataset()))
	stale := now

	now = now.Add(2 * time.Minute)
	fresh := sampleDataset()
	require.NoError(t, c.Set(ctx, "sheet", fresh))

	c.evict("sheet", stale)
	got, ok, err := c.Get(ctx, "sheet")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, fresh, got)

	c.evict("sheet", now)
	_, ok, _ = c.Get(ctx, "sheet")
	assert.False(t, ok)
}

func newTestRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCacheFromClient(rdb, ttl), mr
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t, 10*time.Minute)

	_, ok, err := c.Get(ctx, "sheet")
	require.NoError(t, err)
	assert.False(t, ok)

	ds := sampleDataset()
	require.NoError(t, c.Set(ctx, "sheet", ds))
	assert.True(t, mr.Exists("dataset:sheet"))
	assert.Equal(t, 10*time.Minute, mr.TTL("dataset:sheet"))

	got, ok, err := c.Get(ctx, "sheet")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ds, got)

	require.NoError(t, c.Invalidate(ctx, "sheet"))
	_, ok, err = c.Get(ctx, "sheet")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t, time.Minute)

	require.NoError(t, c.Set(ctx, "sheet", sampleDataset()))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "sheet")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t, 0)

	require.NoError(t, mr.Set("dataset:sheet", "not json"))

	_, ok, err := c.Get(ctx, "sheet")
	assert.Error(t, err)
	assert.False(t, ok)
}
