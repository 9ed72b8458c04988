package cache

import (
	"context"
	"sync"
	"time"

	"crm-insight/internal/models"
)

// Backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Cache stores loaded datasets keyed by source id
type Cache interface {
	Get(ctx context.Context, key string) (*models.Dataset, bool, error)
	Set(ctx context.Context, key string, ds *models.Dataset) error
	Invalidate(ctx context.Context, key string) error
}

type memoryEntry struct {
	dataset  *models.Dataset
	storedAt time.Time
}

// MemoryCache keeps datasets for the lifetime of the process, or for ttl
// when ttl is positive
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an in-process cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.Dataset, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().Sub(entry.storedAt) >= c.ttl {
		c.evict(key, entry.storedAt)
		return nil, false, nil
	}
	return entry.dataset, true, nil
}

// evict removes key only if it still holds the entry stored at storedAt; a
// Set may have replaced it since the read lock was released
func (c *MemoryCache) evict(key string, storedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, ok := c.entries[key]; ok && current.storedAt.Equal(storedAt) {
		delete(c.entries, key)
	}
}

func (c *MemoryCache) Set(_ context.Context, key string, ds *models.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{dataset: ds, storedAt: c.now()}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}
