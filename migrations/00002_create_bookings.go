package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateBookings, downCreateBookings)
}

func upCreateBookings(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS btree_gist;

	CREATE TABLE bookings (
	  id UUID PRIMARY KEY,
	  client_id TEXT NOT NULL,
	  trainer_id TEXT NOT NULL REFERENCES trainer_settings (trainer_id),
	  service_id TEXT NOT NULL,
	  scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
	  duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
	  ends_at TIMESTAMP WITH TIME ZONE NOT NULL,
	  status TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'declined', 'completed', 'cancelled')),
	  notes TEXT NOT NULL DEFAULT '',
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  CHECK (ends_at > scheduled_at),
	  CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
	    trainer_id WITH =,
	    tstzrange(scheduled_at, ends_at, '[)') WITH &&
	  ) WHERE (status IN ('pending', 'confirmed'))
	);

	CREATE INDEX bookings_trainer_scheduled_idx ON bookings (trainer_id, scheduled_at);
	CREATE INDEX bookings_confirmed_ends_idx ON bookings (ends_at) WHERE status = 'confirmed';
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateBookings(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS bookings;`)
	return err
}
