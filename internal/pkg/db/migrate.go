package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migration is one idempotent schema step.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				telegram_id BIGINT PRIMARY KEY,
				username VARCHAR(255) NOT NULL DEFAULT '',
				balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "rounds table",
		sql: `
			CREATE TABLE IF NOT EXISTS rounds (
				id UUID PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
				chat_id BIGINT NOT NULL,
				game VARCHAR(32) NOT NULL,
				bet BIGINT NOT NULL CHECK (bet > 0),
				outcomes INT[] NOT NULL DEFAULT '{}',
				payout BIGINT NOT NULL DEFAULT 0 CHECK (payout >= 0),
				status VARCHAR(16) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				settled_at TIMESTAMPTZ
			);
			CREATE INDEX IF NOT EXISTS idx_rounds_reserved ON rounds(created_at) WHERE status = 'reserved';
		`,
	},
	{
		name: "transactions table",
		sql: `
			CREATE TABLE IF NOT EXISTS transactions (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
				amount BIGINT NOT NULL,
				type VARCHAR(50) NOT NULL,
				round_id UUID REFERENCES rounds(id) ON DELETE SET NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
		`,
	},
	{
		name: "game_records table",
		sql: `
			CREATE TABLE IF NOT EXISTS game_records (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
				chat_id BIGINT NOT NULL,
				game VARCHAR(32) NOT NULL,
				points BIGINT NOT NULL CHECK (points > 0),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_game_records_chat_time ON game_records(chat_id, created_at DESC);
		`,
	},
}

// Migrate applies the schema. Every step is idempotent, so it runs on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
