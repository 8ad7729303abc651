package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements bootstrap the four crawler tables. Every statement is
// idempotent so EnsureSchema is safe to call on every run.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		url          text PRIMARY KEY,
		title        text NOT NULL DEFAULT '(無題)',
		summary      text,
		rate         text,
		cap          text,
		target       text,
		cost_items   text,
		deadline     text,
		fiscal_year  text,
		call_no      text,
		scheme_type  text,
		period_from  text,
		period_to    text,
		content_hash text,
		last_fetched timestamptz NOT NULL DEFAULT now(),
		tokens tsvector GENERATED ALWAYS AS (
			to_tsvector('simple',
				coalesce(title, '') || ' ' || coalesce(summary, '') || ' ' ||
				coalesce(target, '') || ' ' || coalesce(cost_items, ''))
		) STORED
	)`,
	`CREATE INDEX IF NOT EXISTS pages_tokens_idx ON pages USING gin (tokens)`,
	`CREATE INDEX IF NOT EXISTS pages_last_fetched_idx ON pages (last_fetched DESC)`,
	`CREATE TABLE IF NOT EXISTS http_cache (
		url             text PRIMARY KEY,
		etag            text,
		last_modified   text,
		last_status     int,
		last_checked_at timestamptz NOT NULL DEFAULT now(),
		last_changed_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS fetch_log (
		id         bigserial PRIMARY KEY,
		url        text NOT NULL,
		status     text NOT NULL,
		took_ms    int  NOT NULL DEFAULT 0,
		error      text,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS fetch_log_status_idx ON fetch_log (status)`,
	`CREATE TABLE IF NOT EXISTS api_quota (
		month       text NOT NULL,
		api         text NOT NULL,
		used        int  NOT NULL DEFAULT 0,
		quota_limit int  NOT NULL DEFAULT 0,
		PRIMARY KEY (month, api)
	)`,
	// Production deployments that predate the rename still carry the
	// reserved-word column "limit"; migrate it in place.
	`DO $$
	BEGIN
		IF EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'api_quota' AND column_name = 'limit'
		) THEN
			ALTER TABLE api_quota RENAME COLUMN "limit" TO quota_limit;
		END IF;
	END
	$$`,
}

// EnsureSchema applies the crawler schema. Idempotent; called at the start
// of every run.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	return nil
}
