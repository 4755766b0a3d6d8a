// Package service provides business logic implementations.
package service

import (
	"context"
	"time"

	"arcade-bot/internal/model"
	"arcade-bot/internal/repository"
)

// Errors shared with the storage layer, so callers can match either.
var (
	ErrUserNotFound      = repository.ErrUserNotFound
	ErrInsufficientFunds = repository.ErrInsufficientFunds
	ErrInvalidAmount     = repository.ErrInvalidAmount
)

// AccountStore persists balances. Debit and Credit write a ledger entry atomically
// with the balance change, and Debit never leaves a negative balance.
type AccountStore interface {
	GetByID(ctx context.Context, telegramID int64) (*model.User, error)
	GetOrCreate(ctx context.Context, telegramID int64, username string, initialBalance int64) (*model.User, bool, error)
	UpdateUsername(ctx context.Context, telegramID int64, username string) error
	Debit(ctx context.Context, telegramID, amount int64, txType, description string) (*model.User, error)
	Credit(ctx context.Context, telegramID, amount int64, txType, description string) (*model.User, error)
}

// RoundStore journals single-round games.
type RoundStore interface {
	Reserve(ctx context.Context, round *model.Round) (*model.User, error)
	Settle(ctx context.Context, roundID string, outcomes []int, payout int64) (*model.User, error)
	Refund(ctx context.Context, roundID string) (*model.User, error)
	ListStale(ctx context.Context, before time.Time, limit int) ([]*model.Round, error)
}

// RecordStore is the leaderboard history.
type RecordStore interface {
	AwardWin(ctx context.Context, rec *model.GameRecord) (*model.User, error)
	Leaderboard(ctx context.Context, chatID int64, since time.Time, limit int) ([]*model.LeaderboardEntry, error)
	UserPoints(ctx context.Context, chatID, userID int64, since time.Time) (int64, error)
}

// LedgerReader lists ledger entries.
type LedgerReader interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error)
}

// Compile-time checks for both storage drivers.
var (
	_ AccountStore = (*repository.UserRepository)(nil)
	_ RoundStore   = (*repository.RoundRepository)(nil)
	_ RecordStore  = (*repository.RecordRepository)(nil)
	_ LedgerReader = (*repository.TransactionRepository)(nil)
)
