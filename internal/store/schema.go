package store

import (
	"context"
	"time"
)

// Schema statements are idempotent so the server can apply them at boot and
// cmd/seed can run against a fresh database.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		default_currency TEXT NOT NULL DEFAULT 'USD',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL DEFAULT 'expense' CHECK (kind IN ('income', 'expense')),
		color TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		currency TEXT NOT NULL DEFAULT 'USD',
		description TEXT NOT NULL DEFAULT '',
		category_id BIGINT REFERENCES categories(id),
		occurred_at TIMESTAMPTZ NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_occurred_at ON transactions (occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions (category_id)`,
	`CREATE TABLE IF NOT EXISTS budgets (
		id BIGSERIAL PRIMARY KEY,
		category_id BIGINT NOT NULL REFERENCES categories(id),
		month TEXT NOT NULL CHECK (month ~ '^[0-9]{4}-[0-9]{2}$'),
		limit_cents BIGINT NOT NULL CHECK (limit_cents > 0),
		currency TEXT NOT NULL DEFAULT 'USD',
		alert_threshold DOUBLE PRECISION NOT NULL DEFAULT 0.8,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (category_id, month)
	)`,
	`CREATE TABLE IF NOT EXISTS recurring_transactions (
		id BIGSERIAL PRIMARY KEY,
		description TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		currency TEXT NOT NULL DEFAULT 'USD',
		category_id BIGINT REFERENCES categories(id),
		schedule TEXT NOT NULL,
		next_run_at TIMESTAMPTZ NOT NULL,
		last_run_at TIMESTAMPTZ,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recurring_next_run ON recurring_transactions (next_run_at) WHERE active`,
	`CREATE TABLE IF NOT EXISTS app_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates tables and indexes that do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) (err error) {
	defer instrument("schema.ensure", time.Now(), &err)
	for _, stmt := range schemaStatements {
		if _, err = s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
