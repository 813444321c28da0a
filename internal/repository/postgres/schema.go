package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement when DB_AUTO_MIGRATE is set.
// Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGINT PRIMARY KEY,
		wallet_address TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		referral_code TEXT NOT NULL,
		referred_by BIGINT REFERENCES accounts(id),
		mining_active BOOLEAN NOT NULL DEFAULT FALSE,
		last_mining_start TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_referral_code_key ON accounts (referral_code)`,
	`CREATE INDEX IF NOT EXISTS accounts_referred_by_idx ON accounts (referred_by)`,
	`CREATE TABLE IF NOT EXISTS account_balances (
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		kind TEXT NOT NULL,
		amount NUMERIC(38, 9) NOT NULL DEFAULT 0 CHECK (amount >= 0),
		PRIMARY KEY (account_id, kind)
	)`,
	`CREATE TABLE IF NOT EXISTS mining_sessions (
		id UUID PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		start_time TIMESTAMPTZ NOT NULL,
		initial_balance NUMERIC(38, 9) NOT NULL,
		end_time TIMESTAMPTZ,
		earned_amount NUMERIC(38, 9) NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		paused_at TIMESTAMPTZ,
		paused_seconds BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS mining_sessions_active_key ON mining_sessions (account_id) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS deposit_requests (
		id UUID PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		amount NUMERIC(38, 9) NOT NULL,
		tx_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		admin_note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		processed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS deposit_requests_tx_hash_key ON deposit_requests (tx_hash)`,
	`CREATE TABLE IF NOT EXISTS withdrawal_requests (
		id UUID PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		amount NUMERIC(38, 9) NOT NULL,
		fee NUMERIC(38, 9) NOT NULL,
		final_amount NUMERIC(38, 9) NOT NULL,
		wallet_address TEXT NOT NULL,
		withdraw_type TEXT NOT NULL,
		status TEXT NOT NULL,
		admin_note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		processed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS swap_transactions (
		id UUID PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		from_currency TEXT NOT NULL,
		to_currency TEXT NOT NULL,
		amount NUMERIC(38, 9) NOT NULL,
		fee NUMERIC(38, 9) NOT NULL,
		rate NUMERIC(38, 9) NOT NULL,
		net_amount NUMERIC(38, 9) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS referral_edges (
		referred_id BIGINT PRIMARY KEY REFERENCES accounts(id),
		referrer_id BIGINT NOT NULL REFERENCES accounts(id),
		bonus_amount NUMERIC(38, 9) NOT NULL DEFAULT 0,
		is_rewarded BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS referral_edges_referrer_idx ON referral_edges (referrer_id)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id UUID PRIMARY KEY,
		account_id BIGINT NOT NULL REFERENCES accounts(id),
		kind TEXT NOT NULL,
		delta NUMERIC(38, 9) NOT NULL,
		balance NUMERIC(38, 9) NOT NULL,
		reason TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		operator_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_entries_account_idx ON ledger_entries (account_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables and indexes used by the repositories.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
