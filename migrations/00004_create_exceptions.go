package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateExceptions, downCreateExceptions)
}

func upCreateExceptions(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE time_off (
	  id UUID PRIMARY KEY,
	  trainer_id TEXT NOT NULL REFERENCES trainer_settings (trainer_id) ON DELETE CASCADE,
	  start_date DATE NOT NULL,
	  end_date DATE NOT NULL,
	  all_day BOOLEAN NOT NULL DEFAULT TRUE,
	  start_time VARCHAR(5) NOT NULL DEFAULT '00:00',
	  end_time VARCHAR(5) NOT NULL DEFAULT '00:00',
	  note TEXT NOT NULL DEFAULT '',
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  CHECK (end_date >= start_date)
	);

	CREATE INDEX time_off_trainer_range_idx ON time_off (trainer_id, start_date, end_date);

	CREATE TABLE manual_blocks (
	  id UUID PRIMARY KEY,
	  trainer_id TEXT NOT NULL REFERENCES trainer_settings (trainer_id) ON DELETE CASCADE,
	  title TEXT NOT NULL,
	  date DATE NOT NULL,
	  start_time VARCHAR(5) NOT NULL,
	  end_time VARCHAR(5) NOT NULL,
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  CHECK (end_time > start_time)
	);

	CREATE INDEX manual_blocks_trainer_date_idx ON manual_blocks (trainer_id, date);
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateExceptions(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS manual_blocks; DROP TABLE IF EXISTS time_off;`)
	return err
}
