package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trainerbook/backend/internal/domain"
)

func TestMemoryCache_TTLAndInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(30 * time.Second)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)
	occupied := []domain.Interval{{Start: monday.Add(10 * time.Hour), End: monday.Add(11 * time.Hour)}}

	_, ok := c.Get(ctx, "t1", monday)
	require.False(t, ok)

	c.Set(ctx, "t1", monday, occupied)
	c.Set(ctx, "t1", tuesday, nil)
	c.Set(ctx, "t2", monday, occupied)

	got, ok := c.Get(ctx, "t1", monday.Add(15*time.Hour))
	require.True(t, ok, "any instant of the date maps to the same key")
	require.Equal(t, occupied, got)

	got[0] = domain.Interval{}
	again, _ := c.Get(ctx, "t1", monday)
	require.Equal(t, occupied, again, "callers cannot mutate cached values")

	c.Invalidate(ctx, "t1", monday)
	_, ok = c.Get(ctx, "t1", monday)
	require.False(t, ok)
	_, ok = c.Get(ctx, "t1", tuesday)
	require.True(t, ok)

	c.Invalidate(ctx, "t1")
	_, ok = c.Get(ctx, "t1", tuesday)
	require.False(t, ok)
	_, ok = c.Get(ctx, "t2", monday)
	require.True(t, ok, "other trainers keep their entries")

	now = now.Add(30 * time.Second)
	_, ok = c.Get(ctx, "t2", monday)
	require.False(t, ok, "entries expire after the ttl")
	require.Equal(t, 0, c.Len())
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	c.Set(context.Background(), "t1", time.Now(), []domain.Interval{{}})
	_, ok := c.Get(context.Background(), "t1", time.Now())
	require.False(t, ok)
}
