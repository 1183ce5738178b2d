package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/erp/backoffice/internal/domain/setting"
)

// MemorySettingCache implements setting.Cache in process memory.
// It does not share state across instances, so it only suits single-instance
// deployments and tests.
type MemorySettingCache struct {
	items    *ttlcache.Cache[uuid.UUID, []setting.Setting]
	stopOnce sync.Once
}

// NewMemorySettingCache creates an in-memory cache. A capacity of 0 is unbounded.
func NewMemorySettingCache(ttl time.Duration, capacity uint64) *MemorySettingCache {
	opts := []ttlcache.Option[uuid.UUID, []setting.Setting]{
		ttlcache.WithTTL[uuid.UUID, []setting.Setting](ttl),
		ttlcache.WithDisableTouchOnHit[uuid.UUID, []setting.Setting](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[uuid.UUID, []setting.Setting](capacity))
	}
	c := &MemorySettingCache{items: ttlcache.New(opts...)}
	go c.items.Start()
	return c
}

// Get returns a copy of the cached settings, or nil on a miss
func (c *MemorySettingCache) Get(_ context.Context, businessID uuid.UUID) ([]setting.Setting, error) {
	item := c.items.Get(businessID)
	if item == nil {
		return nil, nil
	}
	return slices.Clone(item.Value()), nil
}

// Set stores a copy of the settings of a business
func (c *MemorySettingCache) Set(_ context.Context, businessID uuid.UUID, settings []setting.Setting) error {
	c.items.Set(businessID, slices.Clone(settings), ttlcache.DefaultTTL)
	return nil
}

// Delete removes the cached settings of a business
func (c *MemorySettingCache) Delete(_ context.Context, businessID uuid.UUID) error {
	c.items.Delete(businessID)
	return nil
}

// Len returns the number of cached businesses
func (c *MemorySettingCache) Len() int {
	return c.items.Len()
}

// Close stops the expiry loop
func (c *MemorySettingCache) Close() error {
	c.stopOnce.Do(c.items.Stop)
	return nil
}

// Ensure MemorySettingCache implements setting.Cache
var _ setting.Cache = (*MemorySettingCache)(nil)
