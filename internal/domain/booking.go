package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrRequestResolved   = errors.New("reschedule request already resolved")
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusDeclined  BookingStatus = "declined"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Occupies reports whether a booking in this status blocks its interval.
func (s BookingStatus) Occupies() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusDeclined, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted},
}

// Party identifies a side of a booking.
type Party string

const (
	PartyClient  Party = "client"
	PartyTrainer Party = "trainer"
)

func (p Party) Valid() bool {
	return p == PartyClient || p == PartyTrainer
}

func (p Party) Other() Party {
	if p == PartyClient {
		return PartyTrainer
	}
	return PartyClient
}

// Actor is the caller of a mutating operation, as supplied by the identity layer.
type Actor struct {
	ID   string
	Role Party
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID                 uuid.UUID           `bun:"id,pk,type:uuid"`
	ClientID           string              `bun:"client_id,notnull"`
	TrainerID          string              `bun:"trainer_id,notnull"`
	ServiceID          string              `bun:"service_id,notnull"`
	ScheduledAt        time.Time           `bun:"scheduled_at,notnull"`
	DurationMinutes    int                 `bun:"duration_minutes,notnull"`
	EndsAt             time.Time           `bun:"ends_at,notnull"`
	Status             BookingStatus       `bun:"status,notnull"`
	Notes              string              `bun:"notes"`
	RescheduleRequests []RescheduleRequest `bun:"rel:has-many,join:id=booking_id"`
	CreatedAt          time.Time           `bun:"created_at,notnull"`
	UpdatedAt          time.Time           `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
		b.EndsAt = b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

func (b Booking) Interval() Interval {
	return Interval{
		Start: b.ScheduledAt,
		End:   b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute),
	}
}

// IsParty reports whether actor is the booking's client or trainer in the claimed role.
func (b Booking) IsParty(actor Actor) bool {
	switch actor.Role {
	case PartyClient:
		return actor.ID != "" && actor.ID == b.ClientID
	case PartyTrainer:
		return actor.ID != "" && actor.ID == b.TrainerID
	default:
		return false
	}
}

// SameRequest reports whether o asks for the same booking as b. Used to detect idempotent replays.
func (b Booking) SameRequest(o Booking) bool {
	return b.ClientID == o.ClientID &&
		b.TrainerID == o.TrainerID &&
		b.ServiceID == o.ServiceID &&
		b.DurationMinutes == o.DurationMinutes &&
		b.Notes == o.Notes &&
		b.ScheduledAt.Equal(o.ScheduledAt)
}

func (b Booking) PendingRequest() (RescheduleRequest, bool) {
	for _, r := range b.RescheduleRequests {
		if r.Status == RescheduleStatusPending {
			return r, true
		}
	}
	return RescheduleRequest{}, false
}

func (b Booking) CanTransition(to BookingStatus) bool {
	for _, s := range bookingTransitions[b.Status] {
		if s == to {
			return true
		}
	}
	return false
}

func (b *Booking) Transition(to BookingStatus) error {
	if !b.CanTransition(to) {
		return ErrInvalidTransition
	}
	b.Status = to
	return nil
}

type RescheduleStatus string

const (
	RescheduleStatusPending  RescheduleStatus = "pending"
	RescheduleStatusAccepted RescheduleStatus = "accepted"
	RescheduleStatusDeclined RescheduleStatus = "declined"
)

type RescheduleDecision string

const (
	DecisionAccept  RescheduleDecision = "accept"
	DecisionDecline RescheduleDecision = "decline"
)

// RescheduleRequest is one proposal to move a booking. It is never deleted.
type RescheduleRequest struct {
	bun.BaseModel `bun:"table:reschedule_requests"`

	ID                 uuid.UUID        `bun:"id,pk,type:uuid"`
	BookingID          uuid.UUID        `bun:"booking_id,notnull,type:uuid"`
	RequestedAt        time.Time        `bun:"requested_at,notnull"`
	RequestedBy        Party            `bun:"requested_by,notnull"`
	NewTime            time.Time        `bun:"new_time,notnull"`
	Status             RescheduleStatus `bun:"status,notnull"`
	AwaitingDecisionBy Party            `bun:"awaiting_decision_by,notnull"`
	ResolvedAt         *time.Time       `bun:"resolved_at"`
}

func NewRescheduleRequest(bookingID uuid.UUID, by Party, newTime, now time.Time) (RescheduleRequest, error) {
	if !by.Valid() {
		return RescheduleRequest{}, errors.New("invalid proposer")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return RescheduleRequest{}, err
	}
	return RescheduleRequest{
		ID:                 id,
		BookingID:          bookingID,
		RequestedAt:        now.UTC(),
		RequestedBy:        by,
		NewTime:            newTime.UTC(),
		Status:             RescheduleStatusPending,
		AwaitingDecisionBy: by.Other(),
	}, nil
}

// Resolve moves a pending request to its terminal state.
func (r *RescheduleRequest) Resolve(decision RescheduleDecision, now time.Time) error {
	if r.Status != RescheduleStatusPending {
		return ErrRequestResolved
	}
	switch decision {
	case DecisionAccept:
		r.Status = RescheduleStatusAccepted
	case DecisionDecline:
		r.Status = RescheduleStatusDeclined
	default:
		return errors.New("invalid decision")
	}
	t := now.UTC()
	r.ResolvedAt = &t
	return nil
}
