// Package memstore is an in-process implementation of store.TrainerRepository.
// It enforces the same constraints as the Postgres schema: no overlapping
// active bookings per trainer and at most one pending reschedule request per booking.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"trainerbook/backend/internal/domain"
	"trainerbook/backend/internal/store"
)

type Store struct {
	locks *xsync.MapOf[string, *sync.Mutex]

	mu       sync.RWMutex
	settings map[string]domain.TrainerSettings
	bookings map[uuid.UUID]domain.Booking
	requests map[uuid.UUID]domain.RescheduleRequest
	timeOff  map[uuid.UUID]domain.TimeOff
	blocks   map[uuid.UUID]domain.ManualBlock
}

var _ store.TrainerRepository = (*Store)(nil)

func New() *Store {
	return &Store{
		locks:    xsync.NewMapOf[string, *sync.Mutex](),
		settings: make(map[string]domain.TrainerSettings),
		bookings: make(map[uuid.UUID]domain.Booking),
		requests: make(map[uuid.UUID]domain.RescheduleRequest),
		timeOff:  make(map[uuid.UUID]domain.TimeOff),
		blocks:   make(map[uuid.UUID]domain.ManualBlock),
	}
}

func (s *Store) lock(trainerID string) func() {
	m, _ := s.locks.LoadOrCompute(trainerID, func() *sync.Mutex { return &sync.Mutex{} })
	m.Lock()
	return m.Unlock
}

func (s *Store) InTrainerTransaction(ctx context.Context, trainerID string, fn func(ctx context.Context, tx store.TrainerTx) error) error {
	unlock := s.lock(trainerID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := &trainerTx{
		s:        s,
		bookings: make(map[uuid.UUID]domain.Booking),
		requests: make(map[uuid.UUID]domain.RescheduleRequest),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range t.bookings {
		s.bookings[id] = b
	}
	for id, r := range t.requests {
		s.requests[id] = r
	}
	return nil
}

func (s *Store) ListActiveBookings(ctx context.Context, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeBookings(s.bookings, nil, trainerID, windowStart, windowEnd), nil
}

func (s *Store) ListManualBlocks(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]domain.ManualBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to := domain.NormalizeDate(fromDate), domain.NormalizeDate(toDate)
	var out []domain.ManualBlock
	for _, b := range s.blocks {
		d := domain.NormalizeDate(b.Date)
		if b.TrainerID != trainerID || d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *Store) ListTimeOff(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]domain.TimeOff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to := domain.NormalizeDate(fromDate), domain.NormalizeDate(toDate)
	var out []domain.TimeOff
	for _, t := range s.timeOff {
		if t.TrainerID != trainerID || domain.NormalizeDate(t.StartDate).After(to) || domain.NormalizeDate(t.EndDate).Before(from) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *Store) GetSettings(ctx context.Context, trainerID string) (domain.TrainerSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSettings(trainerID)
}

func (s *Store) getSettings(trainerID string) (domain.TrainerSettings, error) {
	v, ok := s.settings[trainerID]
	if !ok {
		return domain.TrainerSettings{}, store.ErrNotFound
	}
	v.WorkingDays = slices.Clone(v.WorkingDays)
	return v, nil
}

func (s *Store) UpsertSettings(ctx context.Context, v domain.TrainerSettings) (domain.TrainerSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.settings[v.TrainerID]; ok {
		v.CreatedAt = existing.CreatedAt
		v.OffMode = existing.OffMode
	} else if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	v.WorkingDays = slices.Clone(v.WorkingDays)
	s.settings[v.TrainerID] = v
	return v, nil
}

func (s *Store) SetOffMode(ctx context.Context, trainerID string, off bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.settings[trainerID]
	if !ok {
		return store.ErrNotFound
	}
	v.OffMode = off
	v.UpdatedAt = time.Now().UTC()
	s.settings[trainerID] = v
	return nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return withRequests(s.bookings, nil, s.requests, nil, bookingID)
}

func (s *Store) ListBookings(ctx context.Context, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Booking
	for _, b := range s.bookings {
		if b.TrainerID == trainerID && domain.Overlaps(b.Interval(), domain.Interval{Start: windowStart, End: windowEnd}) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) ListCompletable(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Booking
	for _, b := range s.bookings {
		if b.Status == domain.BookingStatusConfirmed && !b.EndsAt.After(cutoff) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) FindRescheduleRequest(ctx context.Context, requestID uuid.UUID) (domain.RescheduleRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[requestID]
	if !ok {
		return domain.RescheduleRequest{}, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) CreateTimeOff(ctx context.Context, t domain.TimeOff) (domain.TimeOff, error) {
	unlock := s.lock(t.TrainerID)
	defer unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.timeOff[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTimeOff(ctx context.Context, trainerID string, id uuid.UUID) (domain.TimeOff, error) {
	unlock := s.lock(trainerID)
	defer unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timeOff[id]
	if !ok || t.TrainerID != trainerID {
		return domain.TimeOff{}, store.ErrNotFound
	}
	delete(s.timeOff, id)
	return t, nil
}

func (s *Store) CreateManualBlock(ctx context.Context, b domain.ManualBlock) (domain.ManualBlock, error) {
	unlock := s.lock(b.TrainerID)
	defer unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == uuid.Nil {
		b.ID = newID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	s.blocks[b.ID] = b
	return b, nil
}

func (s *Store) DeleteManualBlock(ctx context.Context, trainerID string, id uuid.UUID) (domain.ManualBlock, error) {
	unlock := s.lock(trainerID)
	defer unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blocks[id]
	if !ok || b.TrainerID != trainerID {
		return domain.ManualBlock{}, store.ErrNotFound
	}
	delete(s.blocks, id)
	return b, nil
}

// trainerTx stages writes until the transaction function returns without error.
type trainerTx struct {
	s        *Store
	bookings map[uuid.UUID]domain.Booking
	requests map[uuid.UUID]domain.RescheduleRequest
}

func (t *trainerTx) ListActiveBookings(ctx context.Context, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return activeBookings(t.s.bookings, t.bookings, trainerID, windowStart, windowEnd), nil
}

func (t *trainerTx) ListManualBlocks(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]domain.ManualBlock, error) {
	return t.s.ListManualBlocks(ctx, trainerID, fromDate, toDate)
}

func (t *trainerTx) ListTimeOff(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]domain.TimeOff, error) {
	return t.s.ListTimeOff(ctx, trainerID, fromDate, toDate)
}

func (t *trainerTx) GetSettings(ctx context.Context, trainerID string) (domain.TrainerSettings, error) {
	return t.s.GetSettings(ctx, trainerID)
}

func (t *trainerTx) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if b.ID != uuid.Nil {
		if existing, ok := t.lookup(b.ID); ok {
			if !existing.SameRequest(b) {
				return domain.Booking{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		}
	} else {
		b.ID = newID()
	}

	b.RescheduleRequests = nil
	b.EndsAt = b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
	if b.Status.Occupies() && t.overlapsActive(b) {
		return domain.Booking{}, store.ErrConflict
	}

	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	t.bookings[b.ID] = b
	return b, nil
}

func (t *trainerTx) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return withRequests(t.s.bookings, t.bookings, t.s.requests, t.requests, bookingID)
}

func (t *trainerTx) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus) error {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	b, ok := t.lookup(bookingID)
	if !ok {
		return store.ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	if b.Status.Occupies() && t.overlapsActive(b) {
		return store.ErrConflict
	}
	t.bookings[b.ID] = b
	return nil
}

func (t *trainerTx) UpdateBookingTime(ctx context.Context, bookingID uuid.UUID, scheduledAt time.Time, durationMinutes int) error {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	b, ok := t.lookup(bookingID)
	if !ok {
		return store.ErrNotFound
	}
	b.ScheduledAt = scheduledAt
	b.DurationMinutes = durationMinutes
	b.EndsAt = scheduledAt.Add(time.Duration(durationMinutes) * time.Minute)
	b.UpdatedAt = time.Now().UTC()
	if b.Status.Occupies() && t.overlapsActive(b) {
		return store.ErrConflict
	}
	t.bookings[b.ID] = b
	return nil
}

func (t *trainerTx) CreateRescheduleRequest(ctx context.Context, r domain.RescheduleRequest) (domain.RescheduleRequest, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if _, ok := t.lookup(r.BookingID); !ok {
		return domain.RescheduleRequest{}, store.ErrNotFound
	}
	if r.Status == domain.RescheduleStatusPending {
		for _, existing := range mergedRequests(t.s.requests, t.requests) {
			if existing.BookingID == r.BookingID && existing.Status == domain.RescheduleStatusPending {
				return domain.RescheduleRequest{}, store.ErrPendingReschedule
			}
		}
	}
	if r.ID == uuid.Nil {
		r.ID = newID()
	}
	t.requests[r.ID] = r
	return r, nil
}

func (t *trainerTx) UpdateRescheduleRequest(ctx context.Context, r domain.RescheduleRequest) error {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	existing, ok := t.requests[r.ID]
	if !ok {
		existing, ok = t.s.requests[r.ID]
	}
	if !ok {
		return store.ErrNotFound
	}
	existing.Status = r.Status
	existing.ResolvedAt = r.ResolvedAt
	t.requests[r.ID] = existing
	return nil
}

func (t *trainerTx) lookup(id uuid.UUID) (domain.Booking, bool) {
	if b, ok := t.bookings[id]; ok {
		return b, true
	}
	b, ok := t.s.bookings[id]
	return b, ok
}

func (t *trainerTx) overlapsActive(b domain.Booking) bool {
	for _, other := range activeBookings(t.s.bookings, t.bookings, b.TrainerID, b.ScheduledAt, b.EndsAt) {
		if other.ID != b.ID {
			return true
		}
	}
	return false
}

func activeBookings(committed, staged map[uuid.UUID]domain.Booking, trainerID string, windowStart, windowEnd time.Time) []domain.Booking {
	window := domain.Interval{Start: windowStart, End: windowEnd}
	var out []domain.Booking
	add := func(b domain.Booking) {
		if b.TrainerID == trainerID && b.Status.Occupies() && domain.Overlaps(b.Interval(), window) {
			out = append(out, b)
		}
	}
	for id, b := range committed {
		if _, ok := staged[id]; ok {
			continue
		}
		add(b)
	}
	for _, b := range staged {
		add(b)
	}
	sortBookings(out)
	return out
}

func mergedRequests(committed, staged map[uuid.UUID]domain.RescheduleRequest) []domain.RescheduleRequest {
	out := make([]domain.RescheduleRequest, 0, len(committed)+len(staged))
	for id, r := range committed {
		if _, ok := staged[id]; ok {
			continue
		}
		out = append(out, r)
	}
	for _, r := range staged {
		out = append(out, r)
	}
	return out
}

func withRequests(committed, staged map[uuid.UUID]domain.Booking, committedReqs, stagedReqs map[uuid.UUID]domain.RescheduleRequest, id uuid.UUID) (domain.Booking, error) {
	b, ok := staged[id]
	if !ok {
		b, ok = committed[id]
	}
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	b.RescheduleRequests = nil
	for _, r := range mergedRequests(committedReqs, stagedReqs) {
		if r.BookingID == id {
			b.RescheduleRequests = append(b.RescheduleRequests, r)
		}
	}
	sort.Slice(b.RescheduleRequests, func(i, j int) bool {
		return b.RescheduleRequests[i].RequestedAt.Before(b.RescheduleRequests[j].RequestedAt)
	})
	return b, nil
}

func sortBookings(bs []domain.Booking) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].ScheduledAt.Before(bs[j].ScheduledAt) })
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
