package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"trainerbook/backend/internal/domain"
	"trainerbook/backend/internal/store"
	"trainerbook/backend/migrations"
)

func openTestRepo(t *testing.T) (*TrainerRepo, *bun.DB) {
	t.Helper()

	databaseURL := strings.TrimSpace(os.Getenv("TRAINERBOOK_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("TRAINERBOOK_TEST_DATABASE_URL not set")
	}

	admin, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(admin)
	})

	schema := "trainerbook_test_" + randomHex(t, 8)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := admin.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = admin.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	u, err := url.Parse(databaseURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schema+",public")
	u.RawQuery = q.Encode()

	db, err := Open(u.String(), PoolConfig{MaxOpenConns: 8})
	if err != nil {
		t.Fatalf("Open schema db: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	if err := migrations.Up(ctx, db.DB); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return NewTrainerRepo(db), db
}

func seedTrainer(t *testing.T, repo *TrainerRepo, trainerID string) domain.TrainerSettings {
	t.Helper()
	s := domain.TrainerSettings{
		TrainerID:   trainerID,
		Timezone:    "UTC",
		WorkingDays: []int16{1, 2, 3, 4, 5},
		WorkingHours: domain.WeeklyAvailability{
			time.Monday: {Start: domain.MustClockTime("09:00"), End: domain.MustClockTime("17:00")},
		},
		SlotDurationMinutes:   30,
		DefaultServiceMinutes: 60,
	}
	out, err := repo.UpsertSettings(context.Background(), s)
	if err != nil {
		t.Fatalf("UpsertSettings error: %v", err)
	}
	return out
}

func TestPostgresIntegration_UpsertSettingsKeepsOffMode(t *testing.T) {
	repo, _ := openTestRepo(t)
	ctx := context.Background()
	s := seedTrainer(t, repo, "t1")

	if err := repo.SetOffMode(ctx, "t1", true); err != nil {
		t.Fatalf("SetOffMode error: %v", err)
	}
	s.BufferMinutes = 15
	s.OffMode = false
	out, err := repo.UpsertSettings(ctx, s)
	if err != nil {
		t.Fatalf("UpsertSettings error: %v", err)
	}
	if !out.OffMode || out.BufferMinutes != 15 {
		t.Fatalf("upserted settings = %+v, want off mode kept and buffer 15", out)
	}

	got, err := repo.GetSettings(ctx, "t1")
	if err != nil {
		t.Fatalf("GetSettings error: %v", err)
	}
	if !got.OffMode {
		t.Fatal("off mode was cleared by UpsertSettings")
	}
}

func TestPostgresIntegration_BookingOverlapAndIdempotency(t *testing.T) {
	repo, _ := openTestRepo(t)
	ctx := context.Background()
	seedTrainer(t, repo, "t1")

	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	first := domain.Booking{
		ID:              uuid.MustParse("00000000-0000-0000-0000-000000000901"),
		ClientID:        "c1",
		TrainerID:       "t1",
		ServiceID:       "s1",
		ScheduledAt:     start,
		DurationMinutes: 60,
		Status:          domain.BookingStatusPending,
	}

	create := func(b domain.Booking) (domain.Booking, error) {
		var out domain.Booking
		err := repo.InTrainerTransaction(ctx, b.TrainerID, func(ctx context.Context, tx store.TrainerTx) error {
			created, err := tx.CreateBooking(ctx, b)
			out = created
			return err
		})
		return out, err
	}

	b1, err := create(first)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if !b1.EndsAt.Equal(start.Add(time.Hour)) {
		t.Fatalf("ends_at = %v, want %v", b1.EndsAt, start.Add(time.Hour))
	}

	overlapping := first
	overlapping.ID = uuid.MustParse("00000000-0000-0000-0000-000000000902")
	overlapping.ScheduledAt = start.Add(30 * time.Minute)
	if _, err := create(overlapping); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("overlap err = %v, want %v", err, store.ErrConflict)
	}

	abutting := first
	abutting.ID = uuid.MustParse("00000000-0000-0000-0000-000000000903")
	abutting.ScheduledAt = start.Add(time.Hour)
	if _, err := create(abutting); err != nil {
		t.Fatalf("abutting create error: %v", err)
	}

	replay, err := create(first)
	if err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if replay.ID != b1.ID {
		t.Fatalf("replay id = %s, want %s", replay.ID, b1.ID)
	}

	changed := first
	changed.Notes = "different"
	if _, err := create(changed); !errors.Is(err, store.ErrIdempotencyConflict) {
		t.Fatalf("idempotency err = %v, want %v", err, store.ErrIdempotencyConflict)
	}

	active, err := repo.ListActiveBookings(ctx, "t1", start, start.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("ListActiveBookings error: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("len(active) = %d, want 2", len(active))
	}

	err = repo.InTrainerTransaction(ctx, "t1", func(ctx context.Context, tx store.TrainerTx) error {
		return tx.UpdateBookingStatus(ctx, b1.ID, domain.BookingStatusCancelled)
	})
	if err != nil {
		t.Fatalf("cancel error: %v", err)
	}
	if _, err := create(overlapping); err != nil {
		t.Fatalf("create into released interval: %v", err)
	}
}

func TestPostgresIntegration_ConcurrentCommitsNeverOverlap(t *testing.T) {
	repo, _ := openTestRepo(t)
	ctx := context.Background()
	seedTrainer(t, repo, "t1")

	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.InTrainerTransaction(ctx, "t1", func(ctx context.Context, tx store.TrainerTx) error {
				active, err := tx.ListActiveBookings(ctx, "t1", start, start.Add(time.Hour))
				if err != nil {
					return err
				}
				if len(active) > 0 {
					return store.ErrConflict
				}
				_, err = tx.CreateBooking(ctx, domain.Booking{
					ClientID:        "c" + string(rune('a'+i)),
					TrainerID:       "t1",
					ServiceID:       "s1",
					ScheduledAt:     start,
					DurationMinutes: 60,
					Status:          domain.BookingStatusPending,
				})
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Fatalf("successes = %d conflicts = %d, want 1 and %d", successes, conflicts, workers-1)
	}
}

func TestPostgresIntegration_RescheduleAndExceptions(t *testing.T) {
	repo, _ := openTestRepo(t)
	ctx := context.Background()
	seedTrainer(t, repo, "t1")

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	var booking domain.Booking
	err := repo.InTrainerTransaction(ctx, "t1", func(ctx context.Context, tx store.TrainerTx) error {
		b, err := tx.CreateBooking(ctx, domain.Booking{
			ClientID:        "c1",
			TrainerID:       "t1",
			ServiceID:       "s1",
			ScheduledAt:     start,
			DurationMinutes: 60,
			Status:          domain.BookingStatusConfirmed,
		})
		booking = b
		return err
	})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	propose := func() error {
		return repo.InTrainerTransaction(ctx, "t1", func(ctx context.Context, tx store.TrainerTx) error {
			req, err := domain.NewRescheduleRequest(booking.ID, domain.PartyClient, start.Add(2*time.Hour), now)
			if err != nil {
				return err
			}
			_, err = tx.CreateRescheduleRequest(ctx, req)
			return err
		})
	}
	if err := propose(); err != nil {
		t.Fatalf("propose error: %v", err)
	}
	if err := propose(); !errors.Is(err, store.ErrPendingReschedule) {
		t.Fatalf("second propose err = %v, want %v", err, store.ErrPendingReschedule)
	}

	got, err := repo.GetBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetBooking error: %v", err)
	}
	pending, ok := got.PendingRequest()
	if !ok {
		t.Fatalf("expected pending request")
	}
	if pending.AwaitingDecisionBy != domain.PartyTrainer {
		t.Fatalf("awaiting = %s, want trainer", pending.AwaitingDecisionBy)
	}

	found, err := repo.FindRescheduleRequest(ctx, pending.ID)
	if err != nil || found.BookingID != booking.ID {
		t.Fatalf("FindRescheduleRequest = %+v, %v", found, err)
	}

	block, err := repo.CreateManualBlock(ctx, domain.ManualBlock{
		TrainerID: "t1",
		Title:     "lunch",
		Date:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		StartTime: domain.MustClockTime("12:00"),
		EndTime:   domain.MustClockTime("13:00"),
	})
	if err != nil {
		t.Fatalf("CreateManualBlock error: %v", err)
	}
	off, err := repo.CreateTimeOff(ctx, domain.TimeOff{
		TrainerID: "t1",
		StartDate: time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
		AllDay:    true,
	})
	if err != nil {
		t.Fatalf("CreateTimeOff error: %v", err)
	}

	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	blocks, err := repo.ListManualBlocks(ctx, "t1", day, day)
	if err != nil || len(blocks) != 1 || blocks[0].StartTime != domain.MustClockTime("12:00") {
		t.Fatalf("ListManualBlocks = %+v, %v", blocks, err)
	}
	offs, err := repo.ListTimeOff(ctx, "t1", day, day)
	if err != nil || len(offs) != 1 {
		t.Fatalf("ListTimeOff = %+v, %v", offs, err)
	}

	if _, err := repo.DeleteManualBlock(ctx, "t1", block.ID); err != nil {
		t.Fatalf("DeleteManualBlock error: %v", err)
	}
	if _, err := repo.DeleteManualBlock(ctx, "t1", block.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete err = %v, want %v", err, store.ErrNotFound)
	}
	if _, err := repo.DeleteTimeOff(ctx, "other", off.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign delete err = %v, want %v", err, store.ErrNotFound)
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}
