package grpc

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/timestamppb"

	"trainerbook/backend/internal/domain"
	"trainerbook/backend/internal/metrics"
	"trainerbook/backend/internal/service/scheduling"
	"trainerbook/backend/internal/store"
)

type fakeBookingService struct {
	listDatesFn   func(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]time.Time, error)
	listHoursFn   func(ctx context.Context, trainerID string, date time.Time, minutes int) ([]string, error)
	createFn      func(ctx context.Context, in scheduling.CreateBookingInput) (domain.Booking, error)
	bookingFn     func(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error)
	listFn        func(ctx context.Context, actor domain.Actor, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error)
	proposeFn     func(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, newTime time.Time) (domain.RescheduleRequest, error)
	resolveFn     func(ctx context.Context, actor domain.Actor, requestID uuid.UUID, decision domain.RescheduleDecision) (domain.Booking, error)
	addTimeOffFn  func(ctx context.Context, actor domain.Actor, t domain.TimeOff) (domain.TimeOff, error)
	addBlockFn    func(ctx context.Context, actor domain.Actor, b domain.ManualBlock) (domain.ManualBlock, error)
	deleteFn      func(ctx context.Context, actor domain.Actor, trainerID string, id uuid.UUID) error
	settingsFn    func(ctx context.Context, trainerID string) (domain.TrainerSettings, error)
	updateFn      func(ctx context.Context, actor domain.Actor, settings domain.TrainerSettings) (domain.TrainerSettings, error)
	offModeFn     func(ctx context.Context, actor domain.Actor, trainerID string, off bool) error
	listTimeOffFn func(ctx context.Context, actor domain.Actor, trainerID string, fromDate, toDate time.Time) ([]domain.TimeOff, error)
	listBlocksFn  func(ctx context.Context, actor domain.Actor, trainerID string, fromDate, toDate time.Time) ([]domain.ManualBlock, error)
}

func (f *fakeBookingService) ListAvailableDates(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]time.Time, error) {
	if f.listDatesFn == nil {
		panic("ListAvailableDates not configured")
	}
	return f.listDatesFn(ctx, trainerID, fromDate, toDate)
}

func (f *fakeBookingService) ListAvailableHours(ctx context.Context, trainerID string, date time.Time, minutes int) ([]string, error) {
	if f.listHoursFn == nil {
		panic("ListAvailableHours not configured")
	}
	return f.listHoursFn(ctx, trainerID, date, minutes)
}

func (f *fakeBookingService) CreateBooking(ctx context.Context, in scheduling.CreateBookingInput) (domain.Booking, error) {
	if f.createFn == nil {
		panic("CreateBooking not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeBookingService) booking(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error) {
	if f.bookingFn == nil {
		panic("booking call not configured")
	}
	return f.bookingFn(ctx, actor, id)
}

func (f *fakeBookingService) GetBooking(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error) {
	return f.booking(ctx, actor, id)
}

func (f *fakeBookingService) AcceptBooking(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error) {
	return f.booking(ctx, actor, id)
}

func (f *fakeBookingService) DeclineBooking(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error) {
	return f.booking(ctx, actor, id)
}

func (f *fakeBookingService) CancelBooking(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error) {
	return f.booking(ctx, actor, id)
}

func (f *fakeBookingService) CompleteBooking(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error) {
	return f.booking(ctx, actor, id)
}

func (f *fakeBookingService) ListBookings(ctx context.Context, actor domain.Actor, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	if f.listFn == nil {
		panic("ListBookings not configured")
	}
	return f.listFn(ctx, actor, trainerID, windowStart, windowEnd)
}

func (f *fakeBookingService) ProposeReschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, newTime time.Time) (domain.RescheduleRequest, error) {
	if f.proposeFn == nil {
		panic("ProposeReschedule not configured")
	}
	return f.proposeFn(ctx, actor, id, newTime)
}

func (f *fakeBookingService) ResolveReschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, decision domain.RescheduleDecision) (domain.Booking, error) {
	if f.resolveFn == nil {
		panic("ResolveReschedule not configured")
	}
	return f.resolveFn(ctx, actor, id, decision)
}

func (f *fakeBookingService) AddTimeOff(ctx context.Context, actor domain.Actor, t domain.TimeOff) (domain.TimeOff, error) {
	if f.addTimeOffFn == nil {
		panic("AddTimeOff not configured")
	}
	return f.addTimeOffFn(ctx, actor, t)
}

func (f *fakeBookingService) DeleteTimeOff(ctx context.Context, actor domain.Actor, trainerID string, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("DeleteTimeOff not configured")
	}
	return f.deleteFn(ctx, actor, trainerID, id)
}

func (f *fakeBookingService) ListTimeOff(ctx context.Context, actor domain.Actor, trainerID string, fromDate, toDate time.Time) ([]domain.TimeOff, error) {
	if f.listTimeOffFn == nil {
		panic("ListTimeOff not configured")
	}
	return f.listTimeOffFn(ctx, actor, trainerID, fromDate, toDate)
}

func (f *fakeBookingService) AddManualBlock(ctx context.Context, actor domain.Actor, b domain.ManualBlock) (domain.ManualBlock, error) {
	if f.addBlockFn == nil {
		panic("AddManualBlock not configured")
	}
	return f.addBlockFn(ctx, actor, b)
}

func (f *fakeBookingService) DeleteManualBlock(ctx context.Context, actor domain.Actor, trainerID string, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("DeleteManualBlock not configured")
	}
	return f.deleteFn(ctx, actor, trainerID, id)
}

func (f *fakeBookingService) ListManualBlocks(ctx context.Context, actor domain.Actor, trainerID string, fromDate, toDate time.Time) ([]domain.ManualBlock, error) {
	if f.listBlocksFn == nil {
		panic("ListManualBlocks not configured")
	}
	return f.listBlocksFn(ctx, actor, trainerID, fromDate, toDate)
}

func (f *fakeBookingService) GetSettings(ctx context.Context, trainerID string) (domain.TrainerSettings, error) {
	if f.settingsFn == nil {
		panic("GetSettings not configured")
	}
	return f.settingsFn(ctx, trainerID)
}

func (f *fakeBookingService) UpdateSettings(ctx context.Context, actor domain.Actor, settings domain.TrainerSettings) (domain.TrainerSettings, error) {
	if f.updateFn == nil {
		panic("UpdateSettings not configured")
	}
	return f.updateFn(ctx, actor, settings)
}

func (f *fakeBookingService) SetOffMode(ctx context.Context, actor domain.Actor, trainerID string, off bool) error {
	if f.offModeFn == nil {
		panic("SetOffMode not configured")
	}
	return f.offModeFn(ctx, actor, trainerID, off)
}

func asClient(id string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(actorIDHeader, id, actorRoleHeader, "client"))
}

func asTrainer(id string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(actorIDHeader, id, actorRoleHeader, "trainer"))
}

func validCreate() *CreateBookingRequest {
	return &CreateBookingRequest{
		ClientID:        "c1",
		TrainerID:       "t1",
		ServiceID:       "pt-60",
		ScheduledAt:     timestamppb.New(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)),
		DurationMinutes: 60,
	}
}

func TestIdempotencyKey_ReadsHeadersAndTrims(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "  abc  "))
	if got := idempotencyKey(ctx); got != "abc" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "abc")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-idempotency-key", "xyz"))
	if got := idempotencyKey(ctx); got != "xyz" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "xyz")
	}
}

func TestCreateBooking_RejectsInvalidRequests(t *testing.T) {
	srv := NewBookingServer(&fakeBookingService{}, slog.Default())

	missingTime := validCreate()
	missingTime.ScheduledAt = nil
	zeroDuration := validCreate()
	zeroDuration.DurationMinutes = 0

	tests := []struct {
		name string
		req  *CreateBookingRequest
	}{
		{name: "nil", req: nil},
		{name: "missing scheduled_at", req: missingTime},
		{name: "zero duration", req: zeroDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.CreateBooking(asClient("c1"), tt.req)
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
			}
		})
	}
}

func TestCreateBooking_RequiresCallerIdentity(t *testing.T) {
	srv := NewBookingServer(&fakeBookingService{}, slog.Default())

	_, err := srv.CreateBooking(context.Background(), validCreate())
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.Unauthenticated)
	}

	_, err = srv.CreateBooking(asClient("c2"), validCreate())
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.PermissionDenied)
	}
}

func TestCreateBooking_PassesIdempotencyKeyToService(t *testing.T) {
	var gotKey string

	srv := NewBookingServer(&fakeBookingService{
		createFn: func(ctx context.Context, in scheduling.CreateBookingInput) (domain.Booking, error) {
			gotKey = in.IdempotencyKey
			return domain.Booking{ID: uuid.MustParse("00000000-0000-0000-0000-000000000010")}, nil
		},
	}, slog.Default())

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		actorIDHeader, "c1",
		actorRoleHeader, "client",
		"idempotency-key", "k1",
	))
	resp, err := srv.CreateBooking(ctx, validCreate())
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if gotKey != "k1" {
		t.Fatalf("idempotency_key = %q, want %q", gotKey, "k1")
	}
	if resp.Booking.ID != "00000000-0000-0000-0000-000000000010" {
		t.Fatalf("booking id = %q", resp.Booking.ID)
	}
}

func TestCreateBooking_MapsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "conflict", err: store.ErrConflict, want: codes.FailedPrecondition},
		{name: "idempotency", err: store.ErrIdempotencyConflict, want: codes.FailedPrecondition},
		{name: "not found", err: store.ErrNotFound, want: codes.NotFound},
		{name: "validation", err: &scheduling.ValidationError{}, want: codes.InvalidArgument},
		{name: "authorization", err: &scheduling.AuthorizationError{}, want: codes.PermissionDenied},
		{name: "deadline", err: context.DeadlineExceeded, want: codes.DeadlineExceeded},
		{name: "unexpected", err: net.ErrClosed, want: codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewBookingServer(&fakeBookingService{
				createFn: func(ctx context.Context, in scheduling.CreateBookingInput) (domain.Booking, error) {
					return domain.Booking{}, tt.err
				},
			}, slog.Default())

			_, err := srv.CreateBooking(asClient("c1"), validCreate())
			if status.Code(err) != tt.want {
				t.Fatalf("code = %s, want %s", status.Code(err), tt.want)
			}
		})
	}
}

func TestResolveReschedule_MapsResolvedAndPassesDecision(t *testing.T) {
	var gotDecision domain.RescheduleDecision
	var gotActor domain.Actor
	srv := NewBookingServer(&fakeBookingService{
		resolveFn: func(ctx context.Context, actor domain.Actor, id uuid.UUID, decision domain.RescheduleDecision) (domain.Booking, error) {
			gotDecision, gotActor = decision, actor
			return domain.Booking{}, store.ErrRequestResolved
		},
	}, slog.Default())

	_, err := srv.ResolveReschedule(asTrainer("t1"), &ResolveRescheduleRequest{RequestID: uuid.NewString(), Decision: "accept"})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.FailedPrecondition)
	}
	if gotDecision != domain.DecisionAccept {
		t.Fatalf("decision = %q", gotDecision)
	}
	if gotActor != (domain.Actor{ID: "t1", Role: domain.PartyTrainer}) {
		t.Fatalf("actor = %+v", gotActor)
	}

	_, err = srv.ResolveReschedule(asTrainer("t1"), &ResolveRescheduleRequest{RequestID: uuid.NewString(), Decision: "maybe"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestCompleteBooking_PassesTrainerAndMapsErrors(t *testing.T) {
	id := uuid.New()
	var gotActor domain.Actor
	srv := NewBookingServer(&fakeBookingService{
		bookingFn: func(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error) {
			gotActor = actor
			if bookingID != id {
				t.Fatalf("booking id = %s, want %s", bookingID, id)
			}
			if actor.Role != domain.PartyTrainer {
				return domain.Booking{}, &scheduling.AuthorizationError{}
			}
			return domain.Booking{ID: bookingID, TrainerID: actor.ID, Status: domain.BookingStatusCompleted}, nil
		},
	}, slog.Default())

	resp, err := srv.CompleteBooking(asTrainer("t1"), &BookingRequest{BookingID: id.String()})
	if err != nil {
		t.Fatalf("CompleteBooking error: %v", err)
	}
	if resp.Booking.Status != string(domain.BookingStatusCompleted) {
		t.Fatalf("status = %q", resp.Booking.Status)
	}
	if gotActor != (domain.Actor{ID: "t1", Role: domain.PartyTrainer}) {
		t.Fatalf("actor = %+v", gotActor)
	}

	_, err = srv.CompleteBooking(asClient("c1"), &BookingRequest{BookingID: id.String()})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("client: code = %s, want %s", status.Code(err), codes.PermissionDenied)
	}

	_, err = srv.CompleteBooking(context.Background(), &BookingRequest{BookingID: id.String()})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("no identity: code = %s, want %s", status.Code(err), codes.Unauthenticated)
	}
}

func TestUpdateSettings_IgnoresOffModeFromCaller(t *testing.T) {
	var got domain.TrainerSettings
	srv := NewBookingServer(&fakeBookingService{
		updateFn: func(ctx context.Context, actor domain.Actor, settings domain.TrainerSettings) (domain.TrainerSettings, error) {
			got = settings
			return settings, nil
		},
	}, slog.Default())

	_, err := srv.UpdateSettings(asTrainer("t1"), &UpdateSettingsRequest{Settings: &TrainerSettings{
		TrainerID:                     "t1",
		TimeZone:                      "UTC",
		WorkingDays:                   []int32{1},
		WorkingHours:                  map[int32]*DailyWindow{1: {Start: "09:00", End: "12:00"}},
		SlotDurationMinutes:           30,
		DefaultServiceDurationMinutes: 60,
		OffMode:                       true,
	}})
	if err != nil {
		t.Fatalf("UpdateSettings error: %v", err)
	}
	if got.OffMode {
		t.Fatal("off mode reached the service from UpdateSettings")
	}
}

func TestAddTimeOff_ParsesDatesAndTimes(t *testing.T) {
	var got domain.TimeOff
	srv := NewBookingServer(&fakeBookingService{
		addTimeOffFn: func(ctx context.Context, actor domain.Actor, t domain.TimeOff) (domain.TimeOff, error) {
			got = t
			t.ID = uuid.New()
			return t, nil
		},
	}, slog.Default())

	_, err := srv.AddTimeOff(asTrainer("t1"), &AddTimeOffRequest{TrainerID: "t1", StartDate: "2026-01-05", EndDate: "2026-01-06"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("timed entry without times: code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}

	resp, err := srv.AddTimeOff(asTrainer("t1"), &AddTimeOffRequest{
		TrainerID: "t1",
		StartDate: "2026-01-05",
		EndDate:   "2026-01-06",
		StartTime: "13:00",
		EndTime:   "09:30",
	})
	if err != nil {
		t.Fatalf("AddTimeOff error: %v", err)
	}
	if !got.StartDate.Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)) || got.StartTime != domain.MustClockTime("13:00") || got.EndTime != domain.MustClockTime("09:30") {
		t.Fatalf("time off = %+v", got)
	}
	if resp.TimeOff.StartTime != "13:00" || resp.TimeOff.EndDate != "2026-01-06" {
		t.Fatalf("response = %+v", resp.TimeOff)
	}
}

func TestSettingsRoundTripThroughWireTypes(t *testing.T) {
	in := &TrainerSettings{
		TrainerID:                     "t1",
		TimeZone:                      "Europe/Berlin",
		WorkingDays:                   []int32{1, 3},
		WorkingHours:                  map[int32]*DailyWindow{1: {Start: "09:00", End: "17:00"}},
		SlotDurationMinutes:           30,
		DefaultServiceDurationMinutes: 60,
	}
	s, err := fromWireSettings(in)
	if err != nil {
		t.Fatalf("fromWireSettings: %v", err)
	}
	if s.WorkingHours[time.Monday].End != domain.MustClockTime("17:00") {
		t.Fatalf("working hours = %+v", s.WorkingHours)
	}
	out := toWireSettings(s)
	if out.WorkingHours[1].Start != "09:00" || len(out.WorkingDays) != 2 || out.TimeZone != "Europe/Berlin" {
		t.Fatalf("settings = %+v", out)
	}
}

func TestBookingService_OverBufconn(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	m := metrics.New(nil)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RequestTimeoutInterceptor(time.Second),
		ObserveInterceptor(m, slog.Default()),
	))
	RegisterBookingServiceServer(s, NewBookingServer(&fakeBookingService{
		listHoursFn: func(ctx context.Context, trainerID string, date time.Time, minutes int) ([]string, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Errorf("expected request deadline")
			}
			if trainerID != "t1" || minutes != 60 || !date.Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("unexpected args %q %d %s", trainerID, minutes, date)
			}
			return []string{"09:00", "11:00"}, nil
		},
	}, slog.Default()))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	var resp ListAvailableHoursResponse
	err = conn.Invoke(context.Background(), FullMethod("ListAvailableHours"), &ListAvailableHoursRequest{
		TrainerID:              "t1",
		Date:                   "2026-01-05",
		ServiceDurationMinutes: 60,
	}, &resp)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if len(resp.Hours) != 2 || resp.Hours[0] != "09:00" || resp.Hours[1] != "11:00" {
		t.Fatalf("hours = %v", resp.Hours)
	}

	err = conn.Invoke(context.Background(), FullMethod("ListAvailableHours"), &ListAvailableHoursRequest{TrainerID: "t1", Date: "05/01/2026"}, &resp)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}
