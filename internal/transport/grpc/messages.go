package grpc

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Wire messages of trainerbook.v1.BookingService. Dates are "YYYY-MM-DD" and
// clock times "HH:MM" in the trainer's timezone; instants are timestamps.

type Booking struct {
	ID                 string                 `json:"id"`
	ClientID           string                 `json:"client_id"`
	TrainerID          string                 `json:"trainer_id"`
	ServiceID          string                 `json:"service_id"`
	ScheduledAt        *timestamppb.Timestamp `json:"scheduled_at"`
	EndsAt             *timestamppb.Timestamp `json:"ends_at"`
	DurationMinutes    int32                  `json:"duration_minutes"`
	Status             string                 `json:"status"`
	Notes              string                 `json:"notes,omitempty"`
	RescheduleRequests []*RescheduleRequest   `json:"reschedule_requests,omitempty"`
	CreatedAt          *timestamppb.Timestamp `json:"created_at"`
	UpdatedAt          *timestamppb.Timestamp `json:"updated_at"`
}

type RescheduleRequest struct {
	ID                 string                 `json:"id"`
	BookingID          string                 `json:"booking_id"`
	RequestedAt        *timestamppb.Timestamp `json:"requested_at"`
	RequestedBy        string                 `json:"requested_by"`
	NewTime            *timestamppb.Timestamp `json:"new_time"`
	Status             string                 `json:"status"`
	AwaitingDecisionBy string                 `json:"awaiting_decision_by"`
	ResolvedAt         *timestamppb.Timestamp `json:"resolved_at,omitempty"`
}

type TimeOff struct {
	ID        string `json:"id"`
	TrainerID string `json:"trainer_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	AllDay    bool   `json:"all_day"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Note      string `json:"note,omitempty"`
}

type ManualBlock struct {
	ID        string `json:"id"`
	TrainerID string `json:"trainer_id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type DailyWindow struct {
	Start string `json:"start" validate:"required,datetime=15:04"`
	End   string `json:"end" validate:"required,datetime=15:04"`
}

type TrainerSettings struct {
	TrainerID                     string                 `json:"trainer_id" validate:"required"`
	TimeZone                      string                 `json:"time_zone" validate:"required"`
	WorkingDays                   []int32                `json:"working_days" validate:"dive,min=0,max=6"`
	WorkingHours                  map[int32]*DailyWindow `json:"working_hours" validate:"dive,keys,min=0,max=6,endkeys,required"`
	SlotDurationMinutes           int32                  `json:"slot_duration_minutes" validate:"gt=0,lte=240"`
	DefaultServiceDurationMinutes int32                  `json:"default_service_duration_minutes" validate:"gt=0,lte=1440"`
	BufferMinutes                 int32                  `json:"buffer_minutes" validate:"gte=0"`
	MinLeadTimeMinutes            int32                  `json:"min_lead_time_minutes" validate:"gte=0"`
	OffMode                       bool                   `json:"off_mode"` // output only; changed through SetOffMode
}

type ListAvailableDatesRequest struct {
	TrainerID string `json:"trainer_id" validate:"required"`
	FromDate  string `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate    string `json:"to_date" validate:"required,datetime=2006-01-02"`
}

type ListAvailableDatesResponse struct {
	Dates []string `json:"dates"`
}

type ListAvailableHoursRequest struct {
	TrainerID              string `json:"trainer_id" validate:"required"`
	Date                   string `json:"date" validate:"required,datetime=2006-01-02"`
	ServiceDurationMinutes int32  `json:"service_duration_minutes" validate:"gte=0,lte=1440"`
}

type ListAvailableHoursResponse struct {
	Hours []string `json:"hours"`
}

type CreateBookingRequest struct {
	ClientID        string                 `json:"client_id" validate:"required"`
	TrainerID       string                 `json:"trainer_id" validate:"required"`
	ServiceID       string                 `json:"service_id" validate:"required"`
	ScheduledAt     *timestamppb.Timestamp `json:"scheduled_at" validate:"required"`
	DurationMinutes int32                  `json:"duration_minutes" validate:"gt=0,lte=1440"`
	Notes           string                 `json:"notes" validate:"max=2000"`
}

type BookingRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
}

type BookingResponse struct {
	Booking *Booking `json:"booking"`
}

type ListBookingsRequest struct {
	TrainerID   string                 `json:"trainer_id" validate:"required"`
	WindowStart *timestamppb.Timestamp `json:"window_start" validate:"required"`
	WindowEnd   *timestamppb.Timestamp `json:"window_end" validate:"required"`
}

type ListBookingsResponse struct {
	Bookings []*Booking `json:"bookings"`
}

type ProposeRescheduleRequest struct {
	BookingID string                 `json:"booking_id" validate:"required,uuid"`
	NewTime   *timestamppb.Timestamp `json:"new_time" validate:"required"`
}

type ProposeRescheduleResponse struct {
	Request *RescheduleRequest `json:"request"`
}

type ResolveRescheduleRequest struct {
	RequestID string `json:"request_id" validate:"required,uuid"`
	Decision  string `json:"decision" validate:"required,oneof=accept decline"`
}

type AddTimeOffRequest struct {
	TrainerID string `json:"trainer_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	AllDay    bool   `json:"all_day"`
	StartTime string `json:"start_time" validate:"required_if=AllDay false,omitempty,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required_if=AllDay false,omitempty,datetime=15:04"`
	Note      string `json:"note" validate:"max=500"`
}

type TimeOffResponse struct {
	TimeOff *TimeOff `json:"time_off"`
}

type AddManualBlockRequest struct {
	TrainerID string `json:"trainer_id" validate:"required"`
	Title     string `json:"title" validate:"required,max=200"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}

type ManualBlockResponse struct {
	ManualBlock *ManualBlock `json:"manual_block"`
}

type DeleteExceptionRequest struct {
	TrainerID string `json:"trainer_id" validate:"required"`
	ID        string `json:"id" validate:"required,uuid"`
}

type ListExceptionsRequest struct {
	TrainerID string `json:"trainer_id" validate:"required"`
	FromDate  string `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate    string `json:"to_date" validate:"required,datetime=2006-01-02"`
}

type ListTimeOffResponse struct {
	TimeOff []*TimeOff `json:"time_off"`
}

type ListManualBlocksResponse struct {
	ManualBlocks []*ManualBlock `json:"manual_blocks"`
}

type GetSettingsRequest struct {
	TrainerID string `json:"trainer_id" validate:"required"`
}

type UpdateSettingsRequest struct {
	Settings *TrainerSettings `json:"settings" validate:"required"`
}

type SettingsResponse struct {
	Settings *TrainerSettings `json:"settings"`
}

type SetOffModeRequest struct {
	TrainerID string `json:"trainer_id" validate:"required"`
	Off       bool   `json:"off"`
}

type Empty struct{}
