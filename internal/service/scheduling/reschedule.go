package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"trainerbook/backend/internal/domain"
	"trainerbook/backend/internal/events"
	"trainerbook/backend/internal/store"
)

// ProposeReschedule opens a reschedule request on an active booking. The new time must
// satisfy the same rules as a new booking, ignoring the booking's own current interval.
func (s *Service) ProposeReschedule(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, newTime time.Time) (domain.RescheduleRequest, error) {
	if bookingID == uuid.Nil {
		return domain.RescheduleRequest{}, validationError("booking_id is required")
	}
	if newTime.IsZero() {
		return domain.RescheduleRequest{}, validationError("new_time is required")
	}
	if !actor.Role.Valid() {
		return domain.RescheduleRequest{}, authorizationError("unknown actor role")
	}
	newTime = newTime.UTC()

	current, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.RescheduleRequest{}, err
	}

	var (
		out     domain.RescheduleRequest
		booking domain.Booking
	)
	err = s.repo.InTrainerTransaction(ctx, current.TrainerID, func(ctx context.Context, tx store.TrainerTx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.IsParty(actor) {
			return authorizationError("only the booking's client or trainer may propose a new time")
		}
		if !b.Status.Occupies() {
			return validationError("booking is " + string(b.Status))
		}
		if _, ok := b.PendingRequest(); ok {
			return validationError(store.ErrPendingReschedule.Error())
		}
		if newTime.Equal(b.ScheduledAt) {
			return validationError("new_time equals the current time")
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

		candidate := domain.Interval{
			Start: newTime,
			End:   newTime.Add(time.Duration(b.DurationMinutes) * time.Minute),
		}
		occupied, err := freshOccupancy(ctx, tx, rules.Location, b.TrainerID, candidate, b.ID)
		if err != nil {
			return err
		}
		if reason := rules.CheckCandidate(candidate, occupied, s.now()); reason != domain.ReasonNone {
			return rejectError(reason)
		}

		req, err := domain.NewRescheduleRequest(b.ID, actor.Role, newTime, s.now())
		if err != nil {
			return err
		}
		out, err = tx.CreateRescheduleRequest(ctx, req)
		if errors.Is(err, store.ErrPendingReschedule) {
			return validationError(err.Error())
		}
		booking = b
		return err
	})
	s.metrics.ObserveCommit("propose_reschedule", commitOutcome(err))
	if err != nil {
		s.logCommitFailure("propose reschedule", current.TrainerID, err)
		return domain.RescheduleRequest{}, err
	}

	s.publish(ctx, events.RescheduleProposed, booking, &out)
	return out, nil
}

// ResolveReschedule accepts or declines a pending request. Only the party the request is
// waiting on may resolve it. Accepting re-checks occupancy at the new time and, on conflict,
// leaves the request pending. The returned booking carries its full request history.
func (s *Service) ResolveReschedule(ctx context.Context, actor domain.Actor, requestID uuid.UUID, decision domain.RescheduleDecision) (_ domain.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.ResolveReschedule")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("decision", string(decision)))

	if requestID == uuid.Nil {
		return domain.Booking{}, validationError("request_id is required")
	}
	if decision != domain.DecisionAccept && decision != domain.DecisionDecline {
		return domain.Booking{}, validationError("decision must be accept or decline")
	}

	req, err := s.repo.FindRescheduleRequest(ctx, requestID)
	if err != nil {
		return domain.Booking{}, err
	}
	current, err := s.repo.GetBooking(ctx, req.BookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	span.SetAttributes(attribute.String("trainer_id", current.TrainerID))

	var (
		out      domain.Booking
		resolved domain.RescheduleRequest
		before   domain.Interval
		loc      *time.Location
	)
	err = s.repo.InTrainerTransaction(ctx, current.TrainerID, func(ctx context.Context, tx store.TrainerTx) error {
		b, err := tx.GetBooking(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if !b.IsParty(actor) {
			return authorizationError("not a party to this booking")
		}
		r, ok := findRequest(b, requestID)
		if !ok {
			return store.ErrNotFound
		}
		if r.Status != domain.RescheduleStatusPending {
			return store.ErrRequestResolved
		}
		if actor.Role != r.AwaitingDecisionBy {
			return authorizationError("request is awaiting the " + string(r.AwaitingDecisionBy))
		}

		settings, err := tx.GetSettings(ctx, b.TrainerID)
		if err != nil {
			return err
		}
		rules, err := domain.NewSlotRules(settings)
		if err != nil {
			return err
		}
		loc = rules.Location
		before = b.Interval()

		if decision == domain.DecisionAccept {
			if !b.Status.Occupies() {
				return validationError("booking is " + string(b.Status))
			}
			candidate := domain.Interval{
				Start: r.NewTime,
				End:   r.NewTime.Add(time.Duration(b.DurationMinutes) * time.Minute),
			}
			occupied, err := freshOccupancy(ctx, tx, loc, b.TrainerID, candidate, b.ID)
			if err != nil {
				return err
			}
			if reason := rules.CheckOccupancy(candidate, occupied); reason != domain.ReasonNone {
				return rejectError(reason)
			}
			if err := tx.UpdateBookingTime(ctx, b.ID, r.NewTime, b.DurationMinutes); err != nil {
				return err
			}
		}

		if err := r.Resolve(decision, s.now()); err != nil {
			return err
		}
		if err := tx.UpdateRescheduleRequest(ctx, r); err != nil {
			return err
		}
		resolved = r
		out, err = tx.GetBooking(ctx, b.ID)
		return err
	})
	s.metrics.ObserveCommit("resolve_reschedule", commitOutcome(err))
	if err != nil {
		s.logCommitFailure("resolve reschedule", current.TrainerID, err)
		return domain.Booking{}, err
	}

	if decision == domain.DecisionAccept {
		s.invalidate(ctx, out.TrainerID, loc, before, out.Interval())
	}
	s.publish(ctx, events.RescheduleResolved, out, &resolved)
	return out, nil
}

func findRequest(b domain.Booking, id uuid.UUID) (domain.RescheduleRequest, bool) {
	for _, r := range b.RescheduleRequests {
		if r.ID == id {
			return r, true
		}
	}
	return domain.RescheduleRequest{}, false
}
