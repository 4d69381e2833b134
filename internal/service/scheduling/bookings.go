package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"trainerbook/backend/internal/domain"
	"trainerbook/backend/internal/events"
	"trainerbook/backend/internal/store"
)

type CreateBookingInput struct {
	ClientID        string
	TrainerID       string
	ServiceID       string
	ScheduledAt     time.Time
	DurationMinutes int
	Notes           string
	IdempotencyKey  string
}

// CreateBooking commits a new pending booking. The candidate is checked against the
// same rules as slot listing, using occupancy read inside the trainer transaction.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (_ domain.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.CreateBooking")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("trainer_id", in.TrainerID))

	if strings.TrimSpace(in.ClientID) == "" {
		return domain.Booking{}, validationError("client_id is required")
	}
	if strings.TrimSpace(in.TrainerID) == "" {
		return domain.Booking{}, validationError("trainer_id is required")
	}
	if strings.TrimSpace(in.ServiceID) == "" {
		return domain.Booking{}, validationError("service_id is required")
	}
	if in.ScheduledAt.IsZero() {
		return domain.Booking{}, validationError("scheduled_at is required")
	}
	if in.DurationMinutes <= 0 {
		return domain.Booking{}, validationError("duration_minutes must be positive")
	}
	if in.DurationMinutes > maxBookingMinutes {
		return domain.Booking{}, validationError("duration too long")
	}

	b := domain.Booking{
		ClientID:        in.ClientID,
		TrainerID:       in.TrainerID,
		ServiceID:       in.ServiceID,
		ScheduledAt:     in.ScheduledAt.UTC(),
		DurationMinutes: in.DurationMinutes,
		Notes:           in.Notes,
		Status:          domain.BookingStatusPending,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > maxIdempotencyKeyLen {
			return domain.Booking{}, validationError("idempotency_key too long")
		}
		b.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("trainerbook:create_booking:"+in.ClientID+":"+key))
	}

	var (
		out    domain.Booking
		loc    *time.Location
		replay bool
	)
	err = s.repo.InTrainerTransaction(ctx, b.TrainerID, func(ctx context.Context, tx store.TrainerTx) error {
		if b.ID != uuid.Nil {
			existing, err := tx.GetBooking(ctx, b.ID)
			switch {
			case err == nil:
				if !existing.SameRequest(b) {
					return store.ErrIdempotencyConflict
				}
				out, replay = existing, true
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		settings, err := tx.GetSettings(ctx, b.TrainerID)
		if err != nil {
			return err
		}
		if settings.OffMode {
			return validationError("trainer is not accepting bookings")
		}
		rules, err := domain.NewSlotRules(settings)
		if err != nil {
			return err
		}
		loc = rules.Location

		candidate := b.Interval()
		occupied, err := freshOccupancy(ctx, tx, loc, b.TrainerID, candidate, uuid.Nil)
		if err != nil {
			return err
		}
		if reason := rules.CheckCandidate(candidate, occupied, s.now()); reason != domain.ReasonNone {
			return rejectError(reason)
		}

		out, err = tx.CreateBooking(ctx, b)
		return err
	})
	s.metrics.ObserveCommit("create_booking", commitOutcome(err))
	if err != nil {
		s.logCommitFailure("create booking", in.TrainerID, err)
		return domain.Booking{}, err
	}
	if replay {
		return out, nil
	}

	s.invalidate(ctx, out.TrainerID, loc, out.Interval())
	s.publish(ctx, events.BookingCreated, out, nil)
	return out, nil
}

// AcceptBooking confirms a pending booking. Only the booking's trainer may accept.
func (s *Service) AcceptBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, bookingID, domain.BookingStatusConfirmed, events.BookingAccepted, trainerOnly(actor))
}

// DeclineBooking rejects a pending booking and releases its interval.
func (s *Service) DeclineBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, bookingID, domain.BookingStatusDeclined, events.BookingDeclined, trainerOnly(actor))
}

// CancelBooking may be called by either party.
func (s *Service) CancelBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, bookingID, domain.BookingStatusCancelled, events.BookingCancelled, func(b domain.Booking) error {
		if !b.IsParty(actor) {
			return authorizationError("only the booking's client or trainer may cancel it")
		}
		return nil
	})
}

// CompleteBooking lets the trainer mark a confirmed booking completed once its interval has ended.
func (s *Service) CompleteBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error) {
	onlyTrainer := trainerOnly(actor)
	return s.complete(ctx, bookingID, func(b domain.Booking) error {
		if err := onlyTrainer(b); err != nil {
			return err
		}
		return s.ended(b)
	})
}

func (s *Service) complete(ctx context.Context, bookingID uuid.UUID, authorize func(domain.Booking) error) (domain.Booking, error) {
	return s.transition(ctx, bookingID, domain.BookingStatusCompleted, events.BookingCompleted, authorize)
}

func (s *Service) ended(b domain.Booking) error {
	if s.now().Before(b.Interval().End) {
		return validationError("booking has not ended yet")
	}
	return nil
}

// CompleteDue completes up to limit confirmed bookings that have ended. It returns how many were completed.
func (s *Service) CompleteDue(ctx context.Context, limit int) (int, error) {
	due, err := s.repo.ListCompletable(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, b := range due {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		if _, err := s.complete(ctx, b.ID, s.ended); err != nil {
			if isRejection(err) {
				s.log.Info("booking not completed", slog.String("booking_id", b.ID.String()), slog.Any("err", err))
				continue
			}
			return completed, err
		}
		completed++
	}
	s.metrics.ObserveCompleted(completed)
	return completed, nil
}

func trainerOnly(actor domain.Actor) func(domain.Booking) error {
	return func(b domain.Booking) error {
		if actor.Role != domain.PartyTrainer || !b.IsParty(actor) {
			return authorizationError("only the booking's trainer may do this")
		}
		return nil
	}
}

// transition applies a status change under the trainer lock. A booking leaving the
// active states closes any pending reschedule request as declined.
func (s *Service) transition(ctx context.Context, bookingID uuid.UUID, to domain.BookingStatus, event events.Type, authorize func(domain.Booking) error) (domain.Booking, error) {
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}
	current, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}

	var (
		out domain.Booking
		loc *time.Location
	)
	err = s.repo.InTrainerTransaction(ctx, current.TrainerID, func(ctx context.Context, tx store.TrainerTx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := authorize(b); err != nil {
			return err
		}
		if err := b.Transition(to); err != nil {
			return validationError("cannot move booking from " + string(b.Status) + " to " + string(to))
		}
		settings, err := tx.GetSettings(ctx, b.TrainerID)
		if err != nil {
			return err
		}
		if loc, err = settings.Location(); err != nil {
			return err
		}

		if err := tx.UpdateBookingStatus(ctx, b.ID, to); err != nil {
			return err
		}
		if !to.Occupies() {
			if req, ok := b.PendingRequest(); ok {
				if err := req.Resolve(domain.DecisionDecline, s.now()); err != nil {
					return err
				}
				if err := tx.UpdateRescheduleRequest(ctx, req); err != nil {
					return err
				}
			}
		}
		out, err = tx.GetBooking(ctx, b.ID)
		return err
	})
	s.metrics.ObserveCommit(string(event), commitOutcome(err))
	if err != nil {
		s.logCommitFailure(string(event), current.TrainerID, err)
		return domain.Booking{}, err
	}

	s.invalidate(ctx, out.TrainerID, loc, out.Interval())
	s.publish(ctx, event, out, nil)
	return out, nil
}

func (s *Service) GetBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error) {
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !b.IsParty(actor) {
		return domain.Booking{}, authorizationError("not a party to this booking")
	}
	return b, nil
}

func (s *Service) ListBookings(ctx context.Context, actor domain.Actor, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	if err := requireTrainer(actor, trainerID); err != nil {
		return nil, err
	}
	start := windowStart.UTC()
	end := windowEnd.UTC()
	if !end.After(start) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.repo.ListBookings(ctx, trainerID, start, end)
}

func (s *Service) logCommitFailure(op, trainerID string, err error) {
	attrs := []any{slog.String("op", op), slog.String("trainer_id", trainerID), slog.Any("err", err)}
	switch {
	case isConflict(err), isRejection(err):
		s.log.Info("commit rejected", attrs...)
	default:
		s.log.Error("commit failed", attrs...)
	}
}
