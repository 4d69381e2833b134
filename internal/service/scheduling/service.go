package scheduling

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trainerbook/backend/internal/cache"
	"trainerbook/backend/internal/domain"
	"trainerbook/backend/internal/events"
	"trainerbook/backend/internal/metrics"
	"trainerbook/backend/internal/store"
	"trainerbook/backend/internal/tracing"
)

const (
	DefaultMaxRangeDays  = 62
	maxBookingMinutes    = 24 * 60
	maxIdempotencyKeyLen = 256
	listingConcurrency   = 8
)

type Service struct {
	repo         store.TrainerRepository
	cache        cache.Cache
	events       events.Publisher
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	log          *slog.Logger
	now          func() time.Time
	maxRangeDays int
}

type Option func(*Service)

func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMaxRangeDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.maxRangeDays = days
		}
	}
}

func NewService(repo store.TrainerRepository, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		cache:        cache.Nop{},
		tracer:       tracing.Tracer(),
		log:          slog.Default(),
		now:          time.Now,
		maxRangeDays: DefaultMaxRangeDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "scheduling"))
	if s.events == nil {
		s.events = events.NewLogPublisher(s.log)
	}
	return s
}

func (s *Service) publish(ctx context.Context, typ events.Type, b domain.Booking, req *domain.RescheduleRequest) {
	e := events.Event{
		Type:        typ,
		BookingID:   b.ID,
		TrainerID:   b.TrainerID,
		ClientID:    b.ClientID,
		Status:      string(b.Status),
		ScheduledAt: b.ScheduledAt,
		OccurredAt:  s.now().UTC(),
	}
	if req != nil {
		id := req.ID
		e.RequestID = &id
		e.Status = string(req.Status)
		e.ScheduledAt = req.NewTime
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.log.Warn("event publish failed", slog.String("type", string(typ)), slog.String("booking_id", b.ID.String()), slog.Any("err", err))
	}
}

// invalidate drops cached occupancy for every trainer-local date touched by the intervals.
func (s *Service) invalidate(ctx context.Context, trainerID string, loc *time.Location, intervals ...domain.Interval) {
	var dates []time.Time
	for _, iv := range intervals {
		dates = append(dates, touchedDates(iv, loc)...)
	}
	if len(dates) == 0 {
		return
	}
	s.cache.Invalidate(context.WithoutCancel(ctx), trainerID, dates...)
}

func touchedDates(iv domain.Interval, loc *time.Location) []time.Time {
	if !iv.Start.Before(iv.End) {
		return nil
	}
	return domain.DatesBetween(domain.DateOf(iv.Start, loc), domain.DateOf(iv.End.Add(-time.Nanosecond), loc))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func commitOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCommitted
	case isConflict(err):
		return metrics.OutcomeConflict
	case isRejection(err):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
