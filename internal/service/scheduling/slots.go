package scheduling

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"trainerbook/backend/internal/domain"
)

// ListAvailableHours returns the bookable start times on date as "HH:MM" in the trainer's timezone.
// serviceDurationMinutes <= 0 uses the trainer's default service duration.
func (s *Service) ListAvailableHours(ctx context.Context, trainerID string, date time.Time, serviceDurationMinutes int) ([]string, error) {
	slots, rules, err := s.availableSlots(ctx, trainerID, date, serviceDurationMinutes)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(slots))
	for _, t := range slots {
		out = append(out, t.In(rules.Location).Format("15:04"))
	}
	return out, nil
}

// availableSlots is ListAvailableHours returning instants along with the resolved rules.
func (s *Service) availableSlots(ctx context.Context, trainerID string, date time.Time, serviceDurationMinutes int) ([]time.Time, domain.SlotRules, error) {
	started := time.Now()
	defer s.metrics.ObserveListing("hours", started)

	if strings.TrimSpace(trainerID) == "" {
		return nil, domain.SlotRules{}, validationError("trainer_id is required")
	}
	if date.IsZero() {
		return nil, domain.SlotRules{}, validationError("date is required")
	}

	settings, err := s.repo.GetSettings(ctx, trainerID)
	if err != nil {
		return nil, domain.SlotRules{}, err
	}
	rules, err := domain.NewSlotRules(settings)
	if err != nil {
		return nil, domain.SlotRules{}, err
	}
	if settings.OffMode {
		return []time.Time{}, rules, nil
	}

	duration := serviceDuration(settings, serviceDurationMinutes)
	date = domain.NormalizeDate(date)
	occupied, err := s.occupancyForDate(ctx, rules.Location, trainerID, date)
	if err != nil {
		return nil, domain.SlotRules{}, err
	}

	out := []time.Time{}
	for t := range domain.GenerateSlots(rules, date, duration, occupied, s.now()) {
		if err := ctx.Err(); err != nil {
			return nil, domain.SlotRules{}, err
		}
		out = append(out, t)
	}
	return out, rules, nil
}

// ListAvailableDates returns, in order, the dates in [fromDate, toDate] with at least one
// bookable slot for the trainer's default service duration.
func (s *Service) ListAvailableDates(ctx context.Context, trainerID string, fromDate, toDate time.Time) (_ []time.Time, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.ListAvailableDates")
	defer func() { endSpan(span, err) }()
	started := time.Now()
	defer s.metrics.ObserveListing("dates", started)

	if strings.TrimSpace(trainerID) == "" {
		return nil, validationError("trainer_id is required")
	}
	if fromDate.IsZero() || toDate.IsZero() {
		return nil, validationError("from_date and to_date are required")
	}
	fromDate = domain.NormalizeDate(fromDate)
	toDate = domain.NormalizeDate(toDate)
	if toDate.Before(fromDate) {
		return nil, validationError("to_date must not be before from_date")
	}
	dates := domain.DatesBetween(fromDate, toDate)
	if len(dates) > s.maxRangeDays {
		return nil, validationError("date range too long")
	}

	settings, err := s.repo.GetSettings(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	rules, err := domain.NewSlotRules(settings)
	if err != nil {
		return nil, err
	}
	if settings.OffMode {
		return []time.Time{}, nil
	}

	duration := serviceDuration(settings, 0)
	now := s.now()
	today := domain.DateOf(now, rules.Location)

	available := make([]bool, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listingConcurrency)
	for i, d := range dates {
		if !d.After(today) {
			continue
		}
		if _, ok := rules.WorkingInterval(d); !ok {
			continue
		}
		g.Go(func() error {
			occupied, err := s.occupancyForDate(gctx, rules.Location, trainerID, d)
			if err != nil {
				return err
			}
			available[i] = domain.AnySlot(rules, d, duration, occupied, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []time.Time{}
	for i, ok := range available {
		if ok {
			out = append(out, dates[i])
		}
	}
	return out, nil
}

func serviceDuration(settings domain.TrainerSettings, minutes int) time.Duration {
	if minutes <= 0 {
		minutes = settings.DefaultServiceMinutes
	}
	return time.Duration(minutes) * time.Minute
}
