package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trainerbook/backend/internal/domain"
	"trainerbook/backend/internal/store"
)

// occupiedIntervals collects everything that makes the trainer unavailable on the
// dates fromDate..toDate (inclusive, in loc): active bookings, manual blocks and time off.
// Listing and committing both read occupancy through here. Intervals are not merged.
// A non-nil exclude drops that booking, so a booking being moved does not conflict with itself.
func occupiedIntervals(ctx context.Context, r store.OccupancyReader, loc *time.Location, trainerID string, fromDate, toDate time.Time, exclude uuid.UUID) ([]domain.Interval, error) {
	fromDate = domain.NormalizeDate(fromDate)
	toDate = domain.NormalizeDate(toDate)
	window := domain.Interval{
		Start: domain.DayBounds(fromDate, loc).Start,
		End:   domain.DayBounds(toDate, loc).End,
	}

	bookings, err := r.ListActiveBookings(ctx, trainerID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	blocks, err := r.ListManualBlocks(ctx, trainerID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	offs, err := r.ListTimeOff(ctx, trainerID, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Interval, 0, len(bookings)+len(blocks)+len(offs))
	for _, b := range bookings {
		if b.ID == exclude && exclude != uuid.Nil {
			continue
		}
		if !b.Status.Occupies() {
			continue
		}
		out = append(out, b.Interval())
	}
	for _, b := range blocks {
		out = append(out, b.Interval(loc))
	}
	for _, t := range offs {
		if !t.AllDay {
			iv := t.Interval(loc)
			if domain.Overlaps(iv, window) {
				out = append(out, iv)
			}
			continue
		}
		for _, d := range t.Dates() {
			if d.Before(fromDate) || d.After(toDate) {
				continue
			}
			out = append(out, domain.DayBounds(d, loc))
		}
	}
	return out, nil
}

// occupancyForDate serves a single date from the cache, recomputing on a miss.
func (s *Service) occupancyForDate(ctx context.Context, loc *time.Location, trainerID string, date time.Time) ([]domain.Interval, error) {
	if occupied, ok := s.cache.Get(ctx, trainerID, date); ok {
		s.metrics.ObserveCache(true)
		return occupied, nil
	}
	s.metrics.ObserveCache(false)

	occupied, err := occupiedIntervals(ctx, s.repo, loc, trainerID, date, date, uuid.Nil)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, trainerID, date, occupied)
	return occupied, nil
}

// freshOccupancy reads occupancy around candidate inside a trainer transaction, bypassing the cache.
func freshOccupancy(ctx context.Context, tx store.TrainerTx, loc *time.Location, trainerID string, candidate domain.Interval, exclude uuid.UUID) ([]domain.Interval, error) {
	from := domain.DateOf(candidate.Start, loc)
	to := domain.DateOf(candidate.End.Add(-time.Nanosecond), loc)
	return occupiedIntervals(ctx, tx, loc, trainerID, from, to, exclude)
}
