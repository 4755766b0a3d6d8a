// Package repository provides the PostgreSQL data access layer. Every balance
// change runs in one database transaction together with its ledger entry.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"arcade-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrRoundNotFound     = errors.New("round not found")
	ErrRoundClosed       = errors.New("round already closed")
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `telegram_id, username, balance, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.TelegramID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserRepository handles user accounts and balances.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, telegramID int64) (*model.User, error) {
	return getUser(ctx, r.pool, telegramID)
}

func getUser(ctx context.Context, q querier, telegramID int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(q.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetOrCreate retrieves a user, creating the account with initialBalance on first use.
// The second result reports whether the account was created.
func (r *UserRepository) GetOrCreate(ctx context.Context, telegramID int64, username string, initialBalance int64) (*model.User, bool, error) {
	user, err := r.GetByID(ctx, telegramID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	var created *model.User
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
			INSERT INTO users (telegram_id, username, balance, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			ON CONFLICT (telegram_id) DO NOTHING
			RETURNING ` + userColumns

		u, err := scanUser(tx.QueryRow(ctx, query, telegramID, username, initialBalance))
		if err != nil {
			return err
		}
		if initialBalance > 0 {
			if _, err := insertTransaction(ctx, tx, telegramID, initialBalance, model.TxTypeInitial, nil, nil); err != nil {
				return err
			}
		}
		created = u
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race to a concurrent first interaction.
			user, err := r.GetByID(ctx, telegramID)
			return user, false, err
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return created, true, nil
}

// UpdateUsername updates a user's display name.
func (r *UserRepository) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	const query = `
		UPDATE users
		SET username = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.pool.Exec(ctx, query, telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Debit subtracts amount and writes a ledger entry. The balance never goes negative:
// a debit larger than the balance fails with ErrInsufficientFunds and changes nothing.
func (r *UserRepository) Debit(ctx context.Context, telegramID, amount int64, txType, description string) (*model.User, error) {
	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		u, err := debit(ctx, tx, telegramID, amount)
		if err != nil {
			return err
		}
		if _, err := insertTransaction(ctx, tx, telegramID, -amount, txType, nil, optional(description)); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Credit adds amount and writes a ledger entry.
func (r *UserRepository) Credit(ctx context.Context, telegramID, amount int64, txType, description string) (*model.User, error) {
	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		u, err := credit(ctx, tx, telegramID, amount)
		if err != nil {
			return err
		}
		if _, err := insertTransaction(ctx, tx, telegramID, amount, txType, nil, optional(description)); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// debit is a single guarded statement, so concurrent debits cannot overdraw.
func debit(ctx context.Context, q querier, telegramID, amount int64) (*model.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	const query = `
		UPDATE users
		SET balance = balance - $2, updated_at = NOW()
		WHERE telegram_id = $1 AND balance >= $2
		RETURNING ` + userColumns

	user, err := scanUser(q.QueryRow(ctx, query, telegramID, amount))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}
	if _, err := getUser(ctx, q, telegramID); err != nil {
		return nil, err
	}
	return nil, ErrInsufficientFunds
}

func credit(ctx context.Context, q querier, telegramID, amount int64) (*model.User, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	const query = `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(q.QueryRow(ctx, query, telegramID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}
	return user, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
