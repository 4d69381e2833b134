// Package events publishes booking lifecycle notifications for downstream
// delivery (push, email). Publishing never blocks or fails a booking operation.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type Type string

const (
	BookingCreated     Type = "booking.created"
	BookingAccepted    Type = "booking.accepted"
	BookingDeclined    Type = "booking.declined"
	BookingCancelled   Type = "booking.cancelled"
	BookingCompleted   Type = "booking.completed"
	RescheduleProposed Type = "reschedule.proposed"
	RescheduleResolved Type = "reschedule.resolved"
)

const SubjectPrefix = "trainerbook."

type Event struct {
	Type        Type       `json:"event_type"`
	BookingID   uuid.UUID  `json:"booking_id"`
	TrainerID   string     `json:"trainer_id"`
	ClientID    string     `json:"client_id"`
	RequestID   *uuid.UUID `json:"request_id,omitempty"`
	Status      string     `json:"status,omitempty"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

func (e Event) Subject() string {
	return SubjectPrefix + string(e.Type)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type NatsPublisher struct {
	conn *nats.Conn
	log  *slog.Logger
}

func NewNatsPublisher(natsURL string, log *slog.Logger) (*NatsPublisher, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "events.nats"))

	nc, err := nats.Connect(natsURL,
		nats.Name("trainerbook-server"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", slog.Any("err", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NatsPublisher{conn: nc, log: log}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(e.Subject(), payload); err != nil {
		return err
	}
	p.log.Debug("event published", slog.String("subject", e.Subject()), slog.String("booking_id", e.BookingID.String()))
	return nil
}

// Close flushes buffered messages and closes the connection.
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// LogPublisher writes events to the log when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log.With(slog.String("component", "events.log"))}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.log.Info("event",
		slog.String("subject", e.Subject()),
		slog.String("booking_id", e.BookingID.String()),
		slog.String("trainer_id", e.TrainerID),
		slog.Time("scheduled_at", e.ScheduledAt),
	)
	return nil
}
