package storage

import (
	"context"
	"fmt"
)

// schema is applied at startup. Every statement is idempotent so repeated
// boots are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS custom_models (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL UNIQUE,
		version         TEXT NOT NULL,
		enabled         BOOLEAN NOT NULL DEFAULT true,
		base_model      TEXT NOT NULL DEFAULT '',
		params          JSONB NOT NULL DEFAULT '{}',
		rag_policy      JSONB NOT NULL DEFAULT '{}',
		tool_names      JSONB NOT NULL DEFAULT '[]',
		active_versions JSONB NOT NULL DEFAULT '[]',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS model_versions (
		model_id    TEXT NOT NULL REFERENCES custom_models(id) ON DELETE CASCADE,
		version     TEXT NOT NULL,
		enabled     BOOLEAN NOT NULL DEFAULT true,
		base_model  TEXT NOT NULL DEFAULT '',
		params      JSONB NOT NULL DEFAULT '{}',
		rag_policy  JSONB NOT NULL DEFAULT '{}',
		tool_names  JSONB NOT NULL DEFAULT '[]',
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (model_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS active_models (
		model_id   TEXT PRIMARY KEY REFERENCES custom_models(id) ON DELETE CASCADE,
		priority   INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_active_models_priority ON active_models (priority)`,
	`CREATE TABLE IF NOT EXISTS tools (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL DEFAULT '',
		enabled     BOOLEAN NOT NULL DEFAULT true,
		is_builtin  BOOLEAN NOT NULL DEFAULT false,
		source      TEXT NOT NULL DEFAULT '',
		parameters  JSONB NOT NULL DEFAULT '[]',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the schema if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
