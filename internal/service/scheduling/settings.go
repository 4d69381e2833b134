package scheduling

import (
	"context"
	"log/slog"

	"trainerbook/backend/internal/domain"
)

func (s *Service) GetSettings(ctx context.Context, trainerID string) (domain.TrainerSettings, error) {
	if trainerID == "" {
		return domain.TrainerSettings{}, validationError("trainer_id is required")
	}
	return s.repo.GetSettings(ctx, trainerID)
}

// UpdateSettings replaces the trainer's settings. Every cached date of the trainer is dropped.
// Off mode is left as stored; only SetOffMode changes it.
func (s *Service) UpdateSettings(ctx context.Context, actor domain.Actor, settings domain.TrainerSettings) (domain.TrainerSettings, error) {
	if err := requireTrainer(actor, settings.TrainerID); err != nil {
		return domain.TrainerSettings{}, err
	}
	settings.OffMode = false
	if err := settings.Validate(); err != nil {
		return domain.TrainerSettings{}, validationError(err.Error())
	}
	out, err := s.repo.UpsertSettings(ctx, settings)
	if err != nil {
		return domain.TrainerSettings{}, err
	}
	s.cache.Invalidate(context.WithoutCancel(ctx), out.TrainerID)
	s.log.Info("trainer settings updated", slog.String("trainer_id", out.TrainerID))
	return out, nil
}

// SetOffMode hides all of the trainer's availability while on. Existing bookings are kept.
func (s *Service) SetOffMode(ctx context.Context, actor domain.Actor, trainerID string, off bool) error {
	if err := requireTrainer(actor, trainerID); err != nil {
		return err
	}
	if err := s.repo.SetOffMode(ctx, trainerID, off); err != nil {
		return err
	}
	s.cache.Invalidate(context.WithoutCancel(ctx), trainerID)
	s.log.Info("trainer off mode changed", slog.String("trainer_id", trainerID), slog.Bool("off", off))
	return nil
}
