package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trainerbook/backend/internal/domain"
)

// OccupancyReader lists everything that can make a trainer's time unavailable.
// Date arguments are calendar dates (inclusive); window arguments are instants (half-open).
type OccupancyReader interface {
	ListActiveBookings(ctx context.Context, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error)
	ListManualBlocks(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]domain.ManualBlock, error)
	ListTimeOff(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]domain.TimeOff, error)
}

// TrainerTx is a transaction holding the trainer's exclusive lock.
type TrainerTx interface {
	OccupancyReader

	GetSettings(ctx context.Context, trainerID string) (domain.TrainerSettings, error)

	CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	// GetBooking loads the booking with its reschedule history and locks the row.
	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus) error
	UpdateBookingTime(ctx context.Context, bookingID uuid.UUID, scheduledAt time.Time, durationMinutes int) error

	CreateRescheduleRequest(ctx context.Context, r domain.RescheduleRequest) (domain.RescheduleRequest, error)
	UpdateRescheduleRequest(ctx context.Context, r domain.RescheduleRequest) error
}

type TrainerRepository interface {
	OccupancyReader

	// InTrainerTransaction runs fn while no other transaction for trainerID can commit.
	InTrainerTransaction(ctx context.Context, trainerID string, fn func(ctx context.Context, tx TrainerTx) error) error

	GetSettings(ctx context.Context, trainerID string) (domain.TrainerSettings, error)
	UpsertSettings(ctx context.Context, s domain.TrainerSettings) (domain.TrainerSettings, error)
	SetOffMode(ctx context.Context, trainerID string, off bool) error

	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	ListBookings(ctx context.Context, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error)
	// ListCompletable returns confirmed bookings that ended at or before cutoff.
	ListCompletable(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error)
	FindRescheduleRequest(ctx context.Context, requestID uuid.UUID) (domain.RescheduleRequest, error)

	CreateTimeOff(ctx context.Context, t domain.TimeOff) (domain.TimeOff, error)
	DeleteTimeOff(ctx context.Context, trainerID string, id uuid.UUID) (domain.TimeOff, error)
	CreateManualBlock(ctx context.Context, b domain.ManualBlock) (domain.ManualBlock, error)
	DeleteManualBlock(ctx context.Context, trainerID string, id uuid.UUID) (domain.ManualBlock, error)
}
