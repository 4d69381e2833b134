package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateTrainerSettings, downCreateTrainerSettings)
}

func upCreateTrainerSettings(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE trainer_settings (
	  trainer_id TEXT PRIMARY KEY,
	  timezone TEXT NOT NULL DEFAULT 'UTC',
	  working_days SMALLINT[] NOT NULL DEFAULT '{}',
	  working_hours JSONB NOT NULL DEFAULT '{}',
	  slot_duration_minutes INTEGER NOT NULL CHECK (slot_duration_minutes BETWEEN 1 AND 240),
	  default_service_minutes INTEGER NOT NULL CHECK (default_service_minutes > 0),
	  buffer_minutes INTEGER NOT NULL DEFAULT 0 CHECK (buffer_minutes >= 0),
	  min_lead_time_minutes INTEGER NOT NULL DEFAULT 0 CHECK (min_lead_time_minutes >= 0),
	  off_mode BOOLEAN NOT NULL DEFAULT FALSE,
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateTrainerSettings(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS trainer_settings;`)
	return err
}
