package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"trainerbook/backend/internal/domain"
)

func requireTrainer(actor domain.Actor, trainerID string) error {
	if strings.TrimSpace(trainerID) == "" {
		return validationError("trainer_id is required")
	}
	if actor.Role != domain.PartyTrainer || actor.ID != trainerID {
		return authorizationError("only the trainer may manage this calendar")
	}
	return nil
}

// AddTimeOff records a blanket exclusion. Existing bookings inside it are kept;
// the trainer resolves them explicitly.
func (s *Service) AddTimeOff(ctx context.Context, actor domain.Actor, t domain.TimeOff) (domain.TimeOff, error) {
	if err := requireTrainer(actor, t.TrainerID); err != nil {
		return domain.TimeOff{}, err
	}
	t.ID = uuid.Nil
	t.StartDate = domain.NormalizeDate(t.StartDate)
	t.EndDate = domain.NormalizeDate(t.EndDate)
	if t.AllDay {
		t.StartTime, t.EndTime = 0, 0
	}
	if err := t.Validate(); err != nil {
		return domain.TimeOff{}, validationError(err.Error())
	}
	loc, err := s.trainerLocation(ctx, t.TrainerID)
	if err != nil {
		return domain.TimeOff{}, err
	}

	out, err := s.repo.CreateTimeOff(ctx, t)
	if err != nil {
		return domain.TimeOff{}, err
	}
	s.cache.Invalidate(context.WithoutCancel(ctx), out.TrainerID, s.timeOffDates(out, loc)...)
	return out, nil
}

func (s *Service) DeleteTimeOff(ctx context.Context, actor domain.Actor, trainerID string, id uuid.UUID) error {
	if err := requireTrainer(actor, trainerID); err != nil {
		return err
	}
	loc, err := s.trainerLocation(ctx, trainerID)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteTimeOff(ctx, trainerID, id)
	if err != nil {
		return err
	}
	s.cache.Invalidate(context.WithoutCancel(ctx), trainerID, s.timeOffDates(deleted, loc)...)
	return nil
}

func (s *Service) ListTimeOff(ctx context.Context, actor domain.Actor, trainerID string, fromDate, toDate time.Time) ([]domain.TimeOff, error) {
	if err := requireTrainer(actor, trainerID); err != nil {
		return nil, err
	}
	fromDate, toDate = domain.NormalizeDate(fromDate), domain.NormalizeDate(toDate)
	if toDate.Before(fromDate) {
		return nil, validationError("to_date must not be before from_date")
	}
	return s.repo.ListTimeOff(ctx, trainerID, fromDate, toDate)
}

// AddManualBlock removes a single window on one date from availability.
func (s *Service) AddManualBlock(ctx context.Context, actor domain.Actor, b domain.ManualBlock) (domain.ManualBlock, error) {
	if err := requireTrainer(actor, b.TrainerID); err != nil {
		return domain.ManualBlock{}, err
	}
	b.ID = uuid.Nil
	b.Date = domain.NormalizeDate(b.Date)
	if err := b.Validate(); err != nil {
		return domain.ManualBlock{}, validationError(err.Error())
	}
	loc, err := s.trainerLocation(ctx, b.TrainerID)
	if err != nil {
		return domain.ManualBlock{}, err
	}

	out, err := s.repo.CreateManualBlock(ctx, b)
	if err != nil {
		return domain.ManualBlock{}, err
	}
	s.invalidate(ctx, out.TrainerID, loc, out.Interval(loc))
	return out, nil
}

func (s *Service) DeleteManualBlock(ctx context.Context, actor domain.Actor, trainerID string, id uuid.UUID) error {
	if err := requireTrainer(actor, trainerID); err != nil {
		return err
	}
	loc, err := s.trainerLocation(ctx, trainerID)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteManualBlock(ctx, trainerID, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx, trainerID, loc, deleted.Interval(loc))
	return nil
}

func (s *Service) ListManualBlocks(ctx context.Context, actor domain.Actor, trainerID string, fromDate, toDate time.Time) ([]domain.ManualBlock, error) {
	if err := requireTrainer(actor, trainerID); err != nil {
		return nil, err
	}
	fromDate, toDate = domain.NormalizeDate(fromDate), domain.NormalizeDate(toDate)
	if toDate.Before(fromDate) {
		return nil, validationError("to_date must not be before from_date")
	}
	return s.repo.ListManualBlocks(ctx, trainerID, fromDate, toDate)
}

func (s *Service) trainerLocation(ctx context.Context, trainerID string) (*time.Location, error) {
	settings, err := s.repo.GetSettings(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	return settings.Location()
}

// timeOffDates lists the cache dates a time-off entry can affect.
func (s *Service) timeOffDates(t domain.TimeOff, loc *time.Location) []time.Time {
	if t.AllDay {
		return t.Dates()
	}
	return touchedDates(t.Interval(loc), loc)
}
