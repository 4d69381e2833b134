// Package cache holds the short-lived occupancy cache keyed by trainer and date.
// Failures are logged and reported as misses; callers never see cache errors.
package cache

import (
	"context"
	"time"

	"trainerbook/backend/internal/domain"
)

const DefaultTTL = 30 * time.Second

type Cache interface {
	Get(ctx context.Context, trainerID string, date time.Time) ([]domain.Interval, bool)
	Set(ctx context.Context, trainerID string, date time.Time, occupied []domain.Interval)
	// Invalidate drops the given dates, or every key of the trainer when no date is given.
	Invalidate(ctx context.Context, trainerID string, dates ...time.Time)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, time.Time) ([]domain.Interval, bool) { return nil, false }
func (Nop) Set(context.Context, string, time.Time, []domain.Interval)        {}
func (Nop) Invalidate(context.Context, string, ...time.Time)                 {}

func dateKey(date time.Time) string {
	return domain.NormalizeDate(date).Format(domain.DateLayout)
}
