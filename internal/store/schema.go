package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
)

// Timestamps are stored as Unix microseconds (UTC) so ordering and range
// filters behave identically on both dialects.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS learners (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		year_level INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attempt_events (
		sequence BIGINT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		learner_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		chosen_option INTEGER NOT NULL,
		occurred_at BIGINT NOT NULL,
		recorded_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS attempt_events_learner_time
		ON attempt_events (learner_id, occurred_at, sequence)`,
	`CREATE TABLE IF NOT EXISTS mastery_snapshots (
		learner_id TEXT NOT NULL,
		sequence BIGINT NOT NULL,
		watermark_at BIGINT NOT NULL,
		created_at BIGINT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (learner_id, sequence)
	)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		sequence BIGINT PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		latency_ms BIGINT NOT NULL,
		success BOOLEAN NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
}

func ensureSchema(ctx context.Context, db *sql.DB, dia string) error {
	switch dia {
	case dialect.SQLite, dialect.Postgres:
	default:
		return fmt.Errorf("%w: dialect %q", ErrUnsupportedDriver, dia)
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}
