package cache

import (
	"context"
	"slices"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"trainerbook/backend/internal/domain"
)

type memoryKey struct {
	trainerID string
	date      string
}

type memoryEntry struct {
	occupied  []domain.Interval
	expiresAt time.Time
}

// MemoryCache is a process-local cache. Expired entries are dropped lazily on read.
type MemoryCache struct {
	ttl     time.Duration
	now     func() time.Time
	entries *xsync.MapOf[memoryKey, memoryEntry]
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: xsync.NewMapOf[memoryKey, memoryEntry](),
	}
}

func (c *MemoryCache) Get(ctx context.Context, trainerID string, date time.Time) ([]domain.Interval, bool) {
	k := memoryKey{trainerID: trainerID, date: dateKey(date)}
	e, ok := c.entries.Load(k)
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.entries.Compute(k, func(old memoryEntry, loaded bool) (memoryEntry, bool) {
			return old, !loaded || !c.now().Before(old.expiresAt)
		})
		return nil, false
	}
	return slices.Clone(e.occupied), true
}

func (c *MemoryCache) Set(ctx context.Context, trainerID string, date time.Time, occupied []domain.Interval) {
	c.entries.Store(memoryKey{trainerID: trainerID, date: dateKey(date)}, memoryEntry{
		occupied:  slices.Clone(occupied),
		expiresAt: c.now().Add(c.ttl),
	})
}

func (c *MemoryCache) Invalidate(ctx context.Context, trainerID string, dates ...time.Time) {
	if len(dates) == 0 {
		c.entries.Range(func(k memoryKey, _ memoryEntry) bool {
			if k.trainerID == trainerID {
				c.entries.Delete(k)
			}
			return true
		})
		return
	}
	for _, d := range dates {
		c.entries.Delete(memoryKey{trainerID: trainerID, date: dateKey(d)})
	}
}

func (c *MemoryCache) Len() int {
	return c.entries.Size()
}
