package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

func NewConnection(ctx context.Context, connectStr string, logger zerolog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	logger.Info().Str("component", "Database").Msg("Database connection established")
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS comparison_runs (
	id               SERIAL PRIMARY KEY,
	source           TEXT NOT NULL,
	name_a           TEXT NOT NULL,
	name_b           TEXT NOT NULL,
	checksum_a       TEXT NOT NULL,
	checksum_b       TEXT NOT NULL,
	identical        BOOLEAN NOT NULL,
	failed           BOOLEAN NOT NULL,
	error_message    TEXT NOT NULL DEFAULT '',
	slides_compared  INTEGER NOT NULL,
	slide_count_a    INTEGER NOT NULL,
	slide_count_b    INTEGER NOT NULL,
	text_diff_count  INTEGER NOT NULL,
	image_diff_count INTEGER NOT NULL,
	summary          TEXT NOT NULL,
	narrative        TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS comparison_runs_created_at_idx ON comparison_runs (created_at DESC);
`

// EnsureSchema creates the run log table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
