package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"trainerbook/backend/internal/domain"
	"trainerbook/backend/internal/store"
)

const (
	bookingOverlapConstraint = "bookings_no_overlap"
	bookingPrimaryKey        = "bookings_pkey"
	onePendingConstraint     = "reschedule_one_pending"

	maxTxAttempts = 3
)

var activeStatuses = []domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusConfirmed}

type TrainerRepo struct {
	db *bun.DB
}

func NewTrainerRepo(db *bun.DB) *TrainerRepo {
	return &TrainerRepo{db: db}
}

type trainerTx struct {
	tx bun.Tx
}

var (
	_ store.TrainerRepository = (*TrainerRepo)(nil)
	_ store.TrainerTx         = trainerTx{}
)

func (r *TrainerRepo) InTrainerTransaction(ctx context.Context, trainerID string, fn func(ctx context.Context, tx store.TrainerTx) error) error {
	return r.runLocked(ctx, trainerID, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, trainerTx{tx: tx})
	})
}

func (r *TrainerRepo) runLocked(ctx context.Context, trainerID string, fn func(ctx context.Context, tx bun.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if err := lockTrainerCalendar(ctx, tx, trainerID); err != nil {
				return err
			}
			return fn(ctx, tx)
		})
		if !retryable(err) {
			return err
		}
	}
	return err
}

func lockTrainerCalendar(ctx context.Context, tx bun.Tx, trainerID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", trainerID).Exec(ctx)
	return err
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func (r *TrainerRepo) ListActiveBookings(ctx context.Context, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	return listActiveBookings(ctx, r.db, trainerID, windowStart, windowEnd)
}

func (r *TrainerRepo) ListManualBlocks(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]domain.ManualBlock, error) {
	return listManualBlocks(ctx, r.db, trainerID, fromDate, toDate)
}

func (r *TrainerRepo) ListTimeOff(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]domain.TimeOff, error) {
	return listTimeOff(ctx, r.db, trainerID, fromDate, toDate)
}

func (r *TrainerRepo) GetSettings(ctx context.Context, trainerID string) (domain.TrainerSettings, error) {
	return getSettings(ctx, r.db, trainerID)
}

func (r *TrainerRepo) UpsertSettings(ctx context.Context, s domain.TrainerSettings) (domain.TrainerSettings, error) {
	m := s
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (trainer_id) DO UPDATE").
		Set("timezone = EXCLUDED.timezone").
		Set("working_days = EXCLUDED.working_days").
		Set("working_hours = EXCLUDED.working_hours").
		Set("slot_duration_minutes = EXCLUDED.slot_duration_minutes").
		Set("default_service_minutes = EXCLUDED.default_service_minutes").
		Set("buffer_minutes = EXCLUDED.buffer_minutes").
		Set("min_lead_time_minutes = EXCLUDED.min_lead_time_minutes").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.TrainerSettings{}, err
	}
	return m, nil
}

func (r *TrainerRepo) SetOffMode(ctx context.Context, trainerID string, off bool) error {
	res, err := r.db.NewUpdate().
		Model((*domain.TrainerSettings)(nil)).
		Set("off_mode = ?", off).
		Set("updated_at = ?", time.Now().UTC()).
		Where("trainer_id = ?", trainerID).
		Exec(ctx)
	return affectedOne(res, err)
}

func (r *TrainerRepo) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	return getBooking(ctx, r.db, bookingID, false)
}

func (r *TrainerRepo) ListBookings(ctx context.Context, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("trainer_id = ?", trainerID).
		Where("scheduled_at < ?", windowEnd).
		Where("ends_at > ?", windowStart).
		OrderExpr("scheduled_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TrainerRepo) ListCompletable(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", domain.BookingStatusConfirmed).
		Where("ends_at <= ?", cutoff).
		OrderExpr("ends_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TrainerRepo) FindRescheduleRequest(ctx context.Context, requestID uuid.UUID) (domain.RescheduleRequest, error) {
	var req domain.RescheduleRequest
	err := r.db.NewSelect().
		Model(&req).
		Where("id = ?", requestID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.RescheduleRequest{}, notFound(err)
	}
	return req, nil
}

func (r *TrainerRepo) CreateTimeOff(ctx context.Context, t domain.TimeOff) (domain.TimeOff, error) {
	m := t
	err := r.runLocked(ctx, t.TrainerID, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&m).Exec(ctx)
		return err
	})
	if err != nil {
		return domain.TimeOff{}, err
	}
	return m, nil
}

func (r *TrainerRepo) DeleteTimeOff(ctx context.Context, trainerID string, id uuid.UUID) (domain.TimeOff, error) {
	var out domain.TimeOff
	err := r.runLocked(ctx, trainerID, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&out).
			Where("trainer_id = ?", trainerID).
			Where("id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			return notFound(err)
		}
		res, err := tx.NewDelete().Model((*domain.TimeOff)(nil)).Where("id = ?", id).Exec(ctx)
		return affectedOne(res, err)
	})
	if err != nil {
		return domain.TimeOff{}, err
	}
	return out, nil
}

func (r *TrainerRepo) CreateManualBlock(ctx context.Context, b domain.ManualBlock) (domain.ManualBlock, error) {
	m := b
	err := r.runLocked(ctx, b.TrainerID, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&m).Exec(ctx)
		return err
	})
	if err != nil {
		return domain.ManualBlock{}, err
	}
	return m, nil
}

func (r *TrainerRepo) DeleteManualBlock(ctx context.Context, trainerID string, id uuid.UUID) (domain.ManualBlock, error) {
	var out domain.ManualBlock
	err := r.runLocked(ctx, trainerID, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(&out).
			Where("trainer_id = ?", trainerID).
			Where("id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			return notFound(err)
		}
		res, err := tx.NewDelete().Model((*domain.ManualBlock)(nil)).Where("id = ?", id).Exec(ctx)
		return affectedOne(res, err)
	})
	if err != nil {
		return domain.ManualBlock{}, err
	}
	return out, nil
}

func (t trainerTx) ListActiveBookings(ctx context.Context, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	return listActiveBookings(ctx, t.tx, trainerID, windowStart, windowEnd)
}

func (t trainerTx) ListManualBlocks(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]domain.ManualBlock, error) {
	return listManualBlocks(ctx, t.tx, trainerID, fromDate, toDate)
}

func (t trainerTx) ListTimeOff(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]domain.TimeOff, error) {
	return listTimeOff(ctx, t.tx, trainerID, fromDate, toDate)
}

func (t trainerTx) GetSettings(ctx context.Context, trainerID string) (domain.TrainerSettings, error) {
	return getSettings(ctx, t.tx, trainerID)
}

func (t trainerTx) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if b.ID != uuid.Nil {
		existing, err := getBooking(ctx, t.tx, b.ID, false)
		switch {
		case err == nil:
			if !existing.SameRequest(b) {
				return domain.Booking{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		case !errors.Is(err, store.ErrNotFound):
			return domain.Booking{}, err
		}
	}

	m := b
	m.RescheduleRequests = nil
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23P01" && pgErr.ConstraintName == bookingOverlapConstraint {
				return domain.Booking{}, store.ErrConflict
			}
			if pgErr.Code == "23505" && pgErr.ConstraintName == bookingPrimaryKey {
				return domain.Booking{}, store.ErrIdempotencyConflict
			}
		}
		return domain.Booking{}, err
	}
	return m, nil
}

func (t trainerTx) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	return getBooking(ctx, t.tx, bookingID, true)
}

func (t trainerTx) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, status domain.BookingStatus) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", bookingID).
		Exec(ctx)
	return affectedOne(res, err)
}

func (t trainerTx) UpdateBookingTime(ctx context.Context, bookingID uuid.UUID, scheduledAt time.Time, durationMinutes int) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("scheduled_at = ?", scheduledAt).
		Set("ends_at = ?", scheduledAt.Add(time.Duration(durationMinutes)*time.Minute)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", bookingID).
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == bookingOverlapConstraint {
			return store.ErrConflict
		}
	}
	return affectedOne(res, err)
}

func (t trainerTx) CreateRescheduleRequest(ctx context.Context, r domain.RescheduleRequest) (domain.RescheduleRequest, error) {
	m := r
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == onePendingConstraint {
			return domain.RescheduleRequest{}, store.ErrPendingReschedule
		}
		return domain.RescheduleRequest{}, err
	}
	return m, nil
}

func (t trainerTx) UpdateRescheduleRequest(ctx context.Context, r domain.RescheduleRequest) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.RescheduleRequest)(nil)).
		Set("status = ?", r.Status).
		Set("resolved_at = ?", r.ResolvedAt).
		Where("id = ?", r.ID).
		Exec(ctx)
	return affectedOne(res, err)
}

func listActiveBookings(ctx context.Context, db bun.IDB, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := db.NewSelect().
		Model(&rows).
		Where("trainer_id = ?", trainerID).
		Where("status IN (?)", bun.In(activeStatuses)).
		Where("scheduled_at < ?", windowEnd).
		Where("ends_at > ?", windowStart).
		OrderExpr("scheduled_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func listManualBlocks(ctx context.Context, db bun.IDB, trainerID string, fromDate, toDate time.Time) ([]domain.ManualBlock, error) {
	var rows []domain.ManualBlock
	err := db.NewSelect().
		Model(&rows).
		Where("trainer_id = ?", trainerID).
		Where("date >= ?", domain.NormalizeDate(fromDate).Format(domain.DateLayout)).
		Where("date <= ?", domain.NormalizeDate(toDate).Format(domain.DateLayout)).
		OrderExpr("date ASC, start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func listTimeOff(ctx context.Context, db bun.IDB, trainerID string, fromDate, toDate time.Time) ([]domain.TimeOff, error) {
	var rows []domain.TimeOff
	err := db.NewSelect().
		Model(&rows).
		Where("trainer_id = ?", trainerID).
		Where("start_date <= ?", domain.NormalizeDate(toDate).Format(domain.DateLayout)).
		Where("end_date >= ?", domain.NormalizeDate(fromDate).Format(domain.DateLayout)).
		OrderExpr("start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func getSettings(ctx context.Context, db bun.IDB, trainerID string) (domain.TrainerSettings, error) {
	var s domain.TrainerSettings
	err := db.NewSelect().
		Model(&s).
		Where("trainer_id = ?", trainerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.TrainerSettings{}, notFound(err)
	}
	return s, nil
}

func getBooking(ctx context.Context, db bun.IDB, bookingID uuid.UUID, forUpdate bool) (domain.Booking, error) {
	var b domain.Booking
	q := db.NewSelect().
		Model(&b).
		Relation("RescheduleRequests", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("requested_at ASC")
		}).
		Where("?TableAlias.id = ?", bookingID)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return domain.Booking{}, notFound(err)
	}
	return b, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
