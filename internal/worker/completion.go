// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultCompletionSchedule = "@every 5m"
	completionBatch           = 200
	completionTimeout         = time.Minute
)

// Completer marks ended bookings completed and reports how many it changed.
type Completer interface {
	CompleteDue(ctx context.Context, limit int) (int, error)
}

// CompletionSweeper periodically completes confirmed bookings whose interval has ended.
type CompletionSweeper struct {
	cron      *cron.Cron
	completer Completer
	log       *slog.Logger
}

func NewCompletionSweeper(schedule string, completer Completer, log *slog.Logger) (*CompletionSweeper, error) {
	if schedule == "" {
		schedule = DefaultCompletionSchedule
	}
	if log == nil {
		log = slog.Default()
	}
	w := &CompletionSweeper{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		completer: completer,
		log:       log.With(slog.String("component", "completion_sweeper")),
	}
	if _, err := w.cron.AddFunc(schedule, w.runOnce); err != nil {
		return nil, fmt.Errorf("invalid completion schedule %q: %w", schedule, err)
	}
	return w, nil
}

func (w *CompletionSweeper) Start() {
	w.cron.Start()
	w.log.Info("completion sweeper started")
}

// Stop prevents new runs and waits for a running sweep, up to ctx's deadline.
func (w *CompletionSweeper) Stop(ctx context.Context) error {
	done := w.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *CompletionSweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()
	if _, err := w.Sweep(ctx); err != nil {
		w.log.Error("completion sweep failed", slog.Any("err", err))
	}
}

// Sweep completes due bookings in batches until none are left.
func (w *CompletionSweeper) Sweep(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := w.completer.CompleteDue(ctx, completionBatch)
		total += n
		if err != nil {
			return total, err
		}
		if n < completionBatch {
			break
		}
	}
	if total > 0 {
		w.log.Info("bookings completed", slog.Int("count", total))
	}
	return total, nil
}
