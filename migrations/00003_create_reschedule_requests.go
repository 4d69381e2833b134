package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateRescheduleRequests, downCreateRescheduleRequests)
}

func upCreateRescheduleRequests(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE reschedule_requests (
	  id UUID PRIMARY KEY,
	  booking_id UUID NOT NULL REFERENCES bookings (id) ON DELETE CASCADE,
	  requested_at TIMESTAMP WITH TIME ZONE NOT NULL,
	  requested_by TEXT NOT NULL CHECK (requested_by IN ('client', 'trainer')),
	  new_time TIMESTAMP WITH TIME ZONE NOT NULL,
	  status TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'declined')),
	  awaiting_decision_by TEXT NOT NULL CHECK (awaiting_decision_by IN ('client', 'trainer')),
	  resolved_at TIMESTAMP WITH TIME ZONE,
	  CHECK ((status = 'pending') = (resolved_at IS NULL))
	);

	CREATE INDEX reschedule_requests_booking_idx ON reschedule_requests (booking_id, requested_at);
	CREATE UNIQUE INDEX reschedule_one_pending ON reschedule_requests (booking_id) WHERE status = 'pending';
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateRescheduleRequests(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS reschedule_requests;`)
	return err
}
