package grpc

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"trainerbook/backend/internal/domain"
	"trainerbook/backend/internal/service/scheduling"
	"trainerbook/backend/internal/store"
)

// Caller identity is resolved upstream and forwarded in these metadata keys.
const (
	actorIDHeader   = "x-actor-id"
	actorRoleHeader = "x-actor-role"
)

type BookingServer struct {
	svc      bookingService
	validate *validator.Validate
	log      *slog.Logger
}

var _ BookingServiceServer = (*BookingServer)(nil)

type bookingService interface {
	ListAvailableDates(ctx context.Context, trainerID string, fromDate, toDate time.Time) ([]time.Time, error)
	ListAvailableHours(ctx context.Context, trainerID string, date time.Time, serviceDurationMinutes int) ([]string, error)

	CreateBooking(ctx context.Context, in scheduling.CreateBookingInput) (domain.Booking, error)
	GetBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error)
	ListBookings(ctx context.Context, actor domain.Actor, trainerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error)
	AcceptBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error)
	DeclineBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error)
	CancelBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error)
	CompleteBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error)

	ProposeReschedule(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, newTime time.Time) (domain.RescheduleRequest, error)
	ResolveReschedule(ctx context.Context, actor domain.Actor, requestID uuid.UUID, decision domain.RescheduleDecision) (domain.Booking, error)

	AddTimeOff(ctx context.Context, actor domain.Actor, t domain.TimeOff) (domain.TimeOff, error)
	DeleteTimeOff(ctx context.Context, actor domain.Actor, trainerID string, id uuid.UUID) error
	ListTimeOff(ctx context.Context, actor domain.Actor, trainerID string, fromDate, toDate time.Time) ([]domain.TimeOff, error)
	AddManualBlock(ctx context.Context, actor domain.Actor, b domain.ManualBlock) (domain.ManualBlock, error)
	DeleteManualBlock(ctx context.Context, actor domain.Actor, trainerID string, id uuid.UUID) error
	ListManualBlocks(ctx context.Context, actor domain.Actor, trainerID string, fromDate, toDate time.Time) ([]domain.ManualBlock, error)

	GetSettings(ctx context.Context, trainerID string) (domain.TrainerSettings, error)
	UpdateSettings(ctx context.Context, actor domain.Actor, settings domain.TrainerSettings) (domain.TrainerSettings, error)
	SetOffMode(ctx context.Context, actor domain.Actor, trainerID string, off bool) error
}

func NewBookingServer(svc bookingService, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		svc:      svc,
		validate: validator.New(),
		log:      log.With(slog.String("component", "grpc.bookings")),
	}
}

func (s *BookingServer) ListAvailableDates(ctx context.Context, req *ListAvailableDatesRequest) (*ListAvailableDatesResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAvailableDates"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	from, _ := domain.ParseDate(req.FromDate)
	to, _ := domain.ParseDate(req.ToDate)

	dates, err := s.svc.ListAvailableDates(ctx, req.TrainerID, from, to)
	if err != nil {
		return nil, s.fail(log, "available dates failed", err, slog.String("trainer_id", req.TrainerID))
	}

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(domain.DateLayout))
	}
	log.Debug("available dates listed", slog.String("trainer_id", req.TrainerID), slog.Int("count", len(out)))
	return &ListAvailableDatesResponse{Dates: out}, nil
}

func (s *BookingServer) ListAvailableHours(ctx context.Context, req *ListAvailableHoursRequest) (*ListAvailableHoursResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAvailableHours"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	date, _ := domain.ParseDate(req.Date)

	hours, err := s.svc.ListAvailableHours(ctx, req.TrainerID, date, int(req.ServiceDurationMinutes))
	if err != nil {
		return nil, s.fail(log, "available hours failed", err, slog.String("trainer_id", req.TrainerID), slog.String("date", req.Date))
	}
	log.Debug("available hours listed", slog.String("trainer_id", req.TrainerID), slog.String("date", req.Date), slog.Int("count", len(hours)))
	return &ListAvailableHoursResponse{Hours: hours}, nil
}

func (s *BookingServer) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateBooking"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}
	if !(actor.Role == domain.PartyClient && actor.ID == req.ClientID) && !(actor.Role == domain.PartyTrainer && actor.ID == req.TrainerID) {
		log.Warn("permission denied", slog.String("actor_id", actor.ID), slog.String("client_id", req.ClientID))
		return nil, status.Error(codes.PermissionDenied, "cannot book on behalf of another client")
	}

	b, err := s.svc.CreateBooking(ctx, scheduling.CreateBookingInput{
		ClientID:        req.ClientID,
		TrainerID:       req.TrainerID,
		ServiceID:       req.ServiceID,
		ScheduledAt:     req.ScheduledAt.AsTime(),
		DurationMinutes: int(req.DurationMinutes),
		Notes:           req.Notes,
		IdempotencyKey:  idempotencyKey(ctx),
	})
	if err != nil {
		return nil, s.fail(log, "booking create failed", err,
			slog.String("client_id", req.ClientID),
			slog.String("trainer_id", req.TrainerID),
			slog.Time("scheduled_at", req.ScheduledAt.AsTime()),
		)
	}

	log.Info(
		"booking created",
		slog.String("booking_id", b.ID.String()),
		slog.String("client_id", b.ClientID),
		slog.String("trainer_id", b.TrainerID),
		slog.Time("scheduled_at", b.ScheduledAt),
	)
	return &BookingResponse{Booking: toWireBooking(b)}, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (s *BookingServer) GetBooking(ctx context.Context, req *BookingRequest) (*BookingResponse, error) {
	return s.bookingCall(ctx, "GetBooking", req, s.svc.GetBooking)
}

func (s *BookingServer) AcceptBooking(ctx context.Context, req *BookingRequest) (*BookingResponse, error) {
	return s.bookingCall(ctx, "AcceptBooking", req, s.svc.AcceptBooking)
}

func (s *BookingServer) DeclineBooking(ctx context.Context, req *BookingRequest) (*BookingResponse, error) {
	return s.bookingCall(ctx, "DeclineBooking", req, s.svc.DeclineBooking)
}

func (s *BookingServer) CancelBooking(ctx context.Context, req *BookingRequest) (*BookingResponse, error) {
	return s.bookingCall(ctx, "CancelBooking", req, s.svc.CancelBooking)
}

func (s *BookingServer) CompleteBooking(ctx context.Context, req *BookingRequest) (*BookingResponse, error) {
	return s.bookingCall(ctx, "CompleteBooking", req, s.svc.CompleteBooking)
}

func (s *BookingServer) bookingCall(ctx context.Context, rpc string, req *BookingRequest, call func(context.Context, domain.Actor, uuid.UUID) (domain.Booking, error)) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", rpc))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}
	id := uuid.MustParse(req.BookingID)

	b, err := call(ctx, actor, id)
	if err != nil {
		return nil, s.fail(log, "booking call failed", err, slog.String("booking_id", req.BookingID), slog.String("actor_id", actor.ID))
	}
	log.Info("booking call done", slog.String("booking_id", b.ID.String()), slog.String("status", string(b.Status)))
	return &BookingResponse{Booking: toWireBooking(b)}, nil
}

func (s *BookingServer) ListBookings(ctx context.Context, req *ListBookingsRequest) (*ListBookingsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListBookings"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}

	bookings, err := s.svc.ListBookings(ctx, actor, req.TrainerID, req.WindowStart.AsTime(), req.WindowEnd.AsTime())
	if err != nil {
		return nil, s.fail(log, "bookings list failed", err, slog.String("trainer_id", req.TrainerID))
	}
	out := make([]*Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toWireBooking(b))
	}
	log.Debug("bookings listed", slog.String("trainer_id", req.TrainerID), slog.Int("count", len(out)))
	return &ListBookingsResponse{Bookings: out}, nil
}

func (s *BookingServer) ProposeReschedule(ctx context.Context, req *ProposeRescheduleRequest) (*ProposeRescheduleResponse, error) {
	log := s.log.With(slog.String("rpc", "ProposeReschedule"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}

	r, err := s.svc.ProposeReschedule(ctx, actor, uuid.MustParse(req.BookingID), req.NewTime.AsTime())
	if err != nil {
		return nil, s.fail(log, "reschedule propose failed", err, slog.String("booking_id", req.BookingID), slog.String("actor_id", actor.ID))
	}
	log.Info(
		"reschedule proposed",
		slog.String("request_id", r.ID.String()),
		slog.String("booking_id", r.BookingID.String()),
		slog.String("requested_by", string(r.RequestedBy)),
		slog.Time("new_time", r.NewTime),
	)
	return &ProposeRescheduleResponse{Request: toWireRequest(r)}, nil
}

func (s *BookingServer) ResolveReschedule(ctx context.Context, req *ResolveRescheduleRequest) (*BookingResponse, error) {
	log := s.log.With(slog.String("rpc", "ResolveReschedule"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}

	b, err := s.svc.ResolveReschedule(ctx, actor, uuid.MustParse(req.RequestID), domain.RescheduleDecision(req.Decision))
	if err != nil {
		return nil, s.fail(log, "reschedule resolve failed", err, slog.String("request_id", req.RequestID), slog.String("decision", req.Decision))
	}
	log.Info(
		"reschedule resolved",
		slog.String("request_id", req.RequestID),
		slog.String("booking_id", b.ID.String()),
		slog.String("decision", req.Decision),
		slog.Time("scheduled_at", b.ScheduledAt),
	)
	return &BookingResponse{Booking: toWireBooking(b)}, nil
}

func (s *BookingServer) AddTimeOff(ctx context.Context, req *AddTimeOffRequest) (*TimeOffResponse, error) {
	log := s.log.With(slog.String("rpc", "AddTimeOff"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}

	t := domain.TimeOff{TrainerID: req.TrainerID, AllDay: req.AllDay, Note: req.Note}
	t.StartDate, _ = domain.ParseDate(req.StartDate)
	t.EndDate, _ = domain.ParseDate(req.EndDate)
	if !req.AllDay {
		t.StartTime, _ = domain.ParseClockTime(req.StartTime)
		t.EndTime, _ = domain.ParseClockTime(req.EndTime)
	}

	out, err := s.svc.AddTimeOff(ctx, actor, t)
	if err != nil {
		return nil, s.fail(log, "time off create failed", err, slog.String("trainer_id", req.TrainerID))
	}
	log.Info("time off created", slog.String("time_off_id", out.ID.String()), slog.String("trainer_id", out.TrainerID))
	return &TimeOffResponse{TimeOff: toWireTimeOff(out)}, nil
}

func (s *BookingServer) DeleteTimeOff(ctx context.Context, req *DeleteExceptionRequest) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "DeleteTimeOff"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}
	if err := s.svc.DeleteTimeOff(ctx, actor, req.TrainerID, uuid.MustParse(req.ID)); err != nil {
		return nil, s.fail(log, "time off delete failed", err, slog.String("time_off_id", req.ID), slog.String("trainer_id", req.TrainerID))
	}
	log.Info("time off deleted", slog.String("time_off_id", req.ID), slog.String("trainer_id", req.TrainerID))
	return &Empty{}, nil
}

func (s *BookingServer) ListTimeOff(ctx context.Context, req *ListExceptionsRequest) (*ListTimeOffResponse, error) {
	log := s.log.With(slog.String("rpc", "ListTimeOff"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}
	from, _ := domain.ParseDate(req.FromDate)
	to, _ := domain.ParseDate(req.ToDate)

	entries, err := s.svc.ListTimeOff(ctx, actor, req.TrainerID, from, to)
	if err != nil {
		return nil, s.fail(log, "time off list failed", err, slog.String("trainer_id", req.TrainerID))
	}
	out := make([]*TimeOff, 0, len(entries))
	for _, t := range entries {
		out = append(out, toWireTimeOff(t))
	}
	return &ListTimeOffResponse{TimeOff: out}, nil
}

func (s *BookingServer) AddManualBlock(ctx context.Context, req *AddManualBlockRequest) (*ManualBlockResponse, error) {
	log := s.log.With(slog.String("rpc", "AddManualBlock"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}

	b := domain.ManualBlock{TrainerID: req.TrainerID, Title: req.Title}
	b.Date, _ = domain.ParseDate(req.Date)
	b.StartTime, _ = domain.ParseClockTime(req.StartTime)
	b.EndTime, _ = domain.ParseClockTime(req.EndTime)

	out, err := s.svc.AddManualBlock(ctx, actor, b)
	if err != nil {
		return nil, s.fail(log, "manual block create failed", err, slog.String("trainer_id", req.TrainerID), slog.String("date", req.Date))
	}
	log.Info("manual block created", slog.String("block_id", out.ID.String()), slog.String("trainer_id", out.TrainerID), slog.String("date", req.Date))
	return &ManualBlockResponse{ManualBlock: toWireBlock(out)}, nil
}

func (s *BookingServer) DeleteManualBlock(ctx context.Context, req *DeleteExceptionRequest) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "DeleteManualBlock"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}
	if err := s.svc.DeleteManualBlock(ctx, actor, req.TrainerID, uuid.MustParse(req.ID)); err != nil {
		return nil, s.fail(log, "manual block delete failed", err, slog.String("block_id", req.ID), slog.String("trainer_id", req.TrainerID))
	}
	log.Info("manual block deleted", slog.String("block_id", req.ID), slog.String("trainer_id", req.TrainerID))
	return &Empty{}, nil
}

func (s *BookingServer) ListManualBlocks(ctx context.Context, req *ListExceptionsRequest) (*ListManualBlocksResponse, error) {
	log := s.log.With(slog.String("rpc", "ListManualBlocks"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}
	from, _ := domain.ParseDate(req.FromDate)
	to, _ := domain.ParseDate(req.ToDate)

	blocks, err := s.svc.ListManualBlocks(ctx, actor, req.TrainerID, from, to)
	if err != nil {
		return nil, s.fail(log, "manual block list failed", err, slog.String("trainer_id", req.TrainerID))
	}
	out := make([]*ManualBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, toWireBlock(b))
	}
	return &ListManualBlocksResponse{ManualBlocks: out}, nil
}

func (s *BookingServer) GetSettings(ctx context.Context, req *GetSettingsRequest) (*SettingsResponse, error) {
	log := s.log.With(slog.String("rpc", "GetSettings"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	settings, err := s.svc.GetSettings(ctx, req.TrainerID)
	if err != nil {
		return nil, s.fail(log, "settings get failed", err, slog.String("trainer_id", req.TrainerID))
	}
	return &SettingsResponse{Settings: toWireSettings(settings)}, nil
}

func (s *BookingServer) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*SettingsResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateSettings"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}

	settings, err := fromWireSettings(req.Settings)
	if err != nil {
		log.Warn("invalid request", slog.Any("err", err))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	out, err := s.svc.UpdateSettings(ctx, actor, settings)
	if err != nil {
		return nil, s.fail(log, "settings update failed", err, slog.String("trainer_id", req.Settings.TrainerID))
	}
	log.Info("settings updated", slog.String("trainer_id", out.TrainerID))
	return &SettingsResponse{Settings: toWireSettings(out)}, nil
}

func (s *BookingServer) SetOffMode(ctx context.Context, req *SetOffModeRequest) (*Empty, error) {
	log := s.log.With(slog.String("rpc", "SetOffMode"))
	if err := s.check(log, req); err != nil {
		return nil, err
	}
	actor, err := s.actor(ctx, log)
	if err != nil {
		return nil, err
	}
	if err := s.svc.SetOffMode(ctx, actor, req.TrainerID, req.Off); err != nil {
		return nil, s.fail(log, "off mode update failed", err, slog.String("trainer_id", req.TrainerID))
	}
	log.Info("off mode updated", slog.String("trainer_id", req.TrainerID), slog.Bool("off", req.Off))
	return &Empty{}, nil
}

// check rejects nil and structurally invalid requests.
func (s *BookingServer) check(log *slog.Logger, req any) error {
	if isNil(req) {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return status.Error(codes.InvalidArgument, "request is required")
	}
	if err := s.validate.Struct(req); err != nil {
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func isNil(req any) bool {
	if req == nil {
		return true
	}
	v := reflect.ValueOf(req)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func (s *BookingServer) actor(ctx context.Context, log *slog.Logger) (domain.Actor, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	first := func(key string) string {
		if v := md.Get(key); len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	actor := domain.Actor{ID: first(actorIDHeader), Role: domain.Party(strings.ToLower(first(actorRoleHeader)))}
	if actor.ID == "" || !actor.Role.Valid() {
		log.Warn("unauthenticated request")
		return domain.Actor{}, status.Error(codes.Unauthenticated, "caller identity is required")
	}
	return actor, nil
}

// fail maps a service error to a gRPC status, logging expected outcomes below error level.
func (s *BookingServer) fail(log *slog.Logger, msg string, err error, attrs ...any) error {
	args := append([]any{slog.Any("err", err)}, attrs...)

	var vErr *scheduling.ValidationError
	var aErr *scheduling.AuthorizationError
	switch {
	case errors.Is(err, store.ErrConflict):
		log.Info(msg, args...)
		return status.Error(codes.FailedPrecondition, "That time is no longer available. Pick a different slot.")
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.Info(msg, args...)
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different booking. Try again.")
	case errors.Is(err, store.ErrRequestResolved):
		log.Info(msg, args...)
		return status.Error(codes.FailedPrecondition, "This reschedule request was already resolved.")
	case errors.Is(err, store.ErrNotFound):
		log.Info(msg, args...)
		return status.Error(codes.NotFound, "not found")
	case errors.As(err, &vErr):
		log.Warn(msg, args...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.As(err, &aErr):
		log.Warn(msg, args...)
		return status.Error(codes.PermissionDenied, aErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn(msg, args...)
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		log.Info(msg, args...)
		return status.Error(codes.Canceled, "canceled")
	default:
		log.Error(msg, args...)
		return status.Error(codes.Internal, "internal error")
	}
}

func toWireBooking(b domain.Booking) *Booking {
	out := &Booking{
		ID:              b.ID.String(),
		ClientID:        b.ClientID,
		TrainerID:       b.TrainerID,
		ServiceID:       b.ServiceID,
		ScheduledAt:     timestamppb.New(b.ScheduledAt),
		EndsAt:          timestamppb.New(b.Interval().End),
		DurationMinutes: int32(b.DurationMinutes),
		Status:          string(b.Status),
		Notes:           b.Notes,
		CreatedAt:       timestamppb.New(b.CreatedAt),
		UpdatedAt:       timestamppb.New(b.UpdatedAt),
	}
	for _, r := range b.RescheduleRequests {
		out.RescheduleRequests = append(out.RescheduleRequests, toWireRequest(r))
	}
	return out
}

func toWireRequest(r domain.RescheduleRequest) *RescheduleRequest {
	out := &RescheduleRequest{
		ID:                 r.ID.String(),
		BookingID:          r.BookingID.String(),
		RequestedAt:        timestamppb.New(r.RequestedAt),
		RequestedBy:        string(r.RequestedBy),
		NewTime:            timestamppb.New(r.NewTime),
		Status:             string(r.Status),
		AwaitingDecisionBy: string(r.AwaitingDecisionBy),
	}
	if r.ResolvedAt != nil {
		out.ResolvedAt = timestamppb.New(*r.ResolvedAt)
	}
	return out
}

func toWireTimeOff(t domain.TimeOff) *TimeOff {
	out := &TimeOff{
		ID:        t.ID.String(),
		TrainerID: t.TrainerID,
		StartDate: t.StartDate.Format(domain.DateLayout),
		EndDate:   t.EndDate.Format(domain.DateLayout),
		AllDay:    t.AllDay,
		Note:      t.Note,
	}
	if !t.AllDay {
		out.StartTime = t.StartTime.String()
		out.EndTime = t.EndTime.String()
	}
	return out
}

func toWireBlock(b domain.ManualBlock) *ManualBlock {
	return &ManualBlock{
		ID:        b.ID.String(),
		TrainerID: b.TrainerID,
		Title:     b.Title,
		Date:      b.Date.Format(domain.DateLayout),
		StartTime: b.StartTime.String(),
		EndTime:   b.EndTime.String(),
	}
}

func toWireSettings(s domain.TrainerSettings) *TrainerSettings {
	out := &TrainerSettings{
		TrainerID:                     s.TrainerID,
		TimeZone:                      s.Timezone,
		WorkingDays:                   make([]int32, 0, len(s.WorkingDays)),
		WorkingHours:                  make(map[int32]*DailyWindow, len(s.WorkingHours)),
		SlotDurationMinutes:           int32(s.SlotDurationMinutes),
		DefaultServiceDurationMinutes: int32(s.DefaultServiceMinutes),
		BufferMinutes:                 int32(s.BufferMinutes),
		MinLeadTimeMinutes:            int32(s.MinLeadTimeMinutes),
		OffMode:                       s.OffMode,
	}
	for _, d := range s.WorkingDays {
		out.WorkingDays = append(out.WorkingDays, int32(d))
	}
	for wd, w := range s.WorkingHours {
		out.WorkingHours[int32(wd)] = &DailyWindow{Start: w.Start.String(), End: w.End.String()}
	}
	return out
}

func fromWireSettings(in *TrainerSettings) (domain.TrainerSettings, error) {
	out := domain.TrainerSettings{
		TrainerID:             in.TrainerID,
		Timezone:              in.TimeZone,
		WorkingDays:           make([]int16, 0, len(in.WorkingDays)),
		WorkingHours:          make(domain.WeeklyAvailability, len(in.WorkingHours)),
		SlotDurationMinutes:   int(in.SlotDurationMinutes),
		DefaultServiceMinutes: int(in.DefaultServiceDurationMinutes),
		BufferMinutes:         int(in.BufferMinutes),
		MinLeadTimeMinutes:    int(in.MinLeadTimeMinutes),
	}
	for _, d := range in.WorkingDays {
		out.WorkingDays = append(out.WorkingDays, int16(d))
	}
	for wd, w := range in.WorkingHours {
		if w == nil {
			return domain.TrainerSettings{}, errors.New("working hours window is required")
		}
		start, err := domain.ParseClockTime(w.Start)
		if err != nil {
			return domain.TrainerSettings{}, err
		}
		end, err := domain.ParseClockTime(w.End)
		if err != nil {
			return domain.TrainerSettings{}, err
		}
		out.WorkingHours[time.Weekday(wd)] = domain.DailyWindow{Start: start, End: end}
	}
	return out, nil
}
