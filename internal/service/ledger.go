package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"arcade-bot/internal/cooldown"
	"arcade-bot/internal/model"
	"arcade-bot/internal/pkg/lock"
	"arcade-bot/internal/pkg/metrics"
)

// ErrCooldownActive is wrapped by every *CooldownError.
var ErrCooldownActive = errors.New("cooldown active")

// CooldownError reports how long the caller has to wait.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, %s remaining", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// LedgerConfig holds token amounts.
type LedgerConfig struct {
	InitialBalance int64
	FreeGrant      int64
}

// LedgerService handles balances and free token grants.
type LedgerService struct {
	accounts  AccountStore
	records   RecordStore
	history   LedgerReader
	cooldowns *cooldown.Tracker
	locks     *lock.UserLock
	metrics   *metrics.Metrics
	cfg       LedgerConfig
	now       func() time.Time
}

// NewLedgerService creates a new LedgerService instance.
// history and m may be nil.
func NewLedgerService(
	accounts AccountStore,
	records RecordStore,
	history LedgerReader,
	cooldowns *cooldown.Tracker,
	locks *lock.UserLock,
	m *metrics.Metrics,
	cfg LedgerConfig,
) *LedgerService {
	if locks == nil {
		locks = lock.NewUserLock()
	}
	return &LedgerService{
		accounts:  accounts,
		records:   records,
		history:   history,
		cooldowns: cooldowns,
		locks:     locks,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
	}
}

// FreeGrant returns the amount credited per free token claim.
func (s *LedgerService) FreeGrant() int64 { return s.cfg.FreeGrant }

// EnsureUser ensures a user exists, creating one if necessary.
// Returns the user and whether it was newly created.
func (s *LedgerService) EnsureUser(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	user, created, err := s.accounts.GetOrCreate(ctx, telegramID, username, s.cfg.InitialBalance)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	if !created && username != "" && user.Username != username {
		if err := s.accounts.UpdateUsername(ctx, telegramID, username); err != nil {
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to update username")
		} else {
			user.Username = username
		}
	}

	return user, created, nil
}

// Balance returns a user's balance, or 0 for a user that has never played.
func (s *LedgerService) Balance(ctx context.Context, telegramID int64) (int64, error) {
	user, err := s.accounts.GetByID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return user.Balance, nil
}

// Debit subtracts amount from the balance.
// Fails with ErrInsufficientFunds, leaving the balance untouched, if amount exceeds it.
func (s *LedgerService) Debit(ctx context.Context, telegramID, amount int64) (*model.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	return s.accounts.Debit(ctx, telegramID, amount, model.TxTypeDebit, "")
}

// Credit adds amount to the balance.
func (s *LedgerService) Credit(ctx context.Context, telegramID, amount int64) (*model.User, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	return s.accounts.Credit(ctx, telegramID, amount, model.TxTypeCredit, "")
}

// GrantFreeTokens credits the free grant without looking at the cooldown.
func (s *LedgerService) GrantFreeTokens(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.accounts.Credit(ctx, telegramID, s.cfg.FreeGrant, model.TxTypeFreeTokens, "free tokens")
	if err != nil {
		return nil, fmt.Errorf("failed to grant free tokens: %w", err)
	}
	return user, nil
}

// ClaimFreeTokens grants free tokens when the claim window has elapsed.
// While the window is open it returns a *CooldownError and changes nothing.
func (s *LedgerService) ClaimFreeTokens(ctx context.Context, telegramID int64, username string, now time.Time) (*model.User, error) {
	s.locks.Lock(telegramID)
	defer s.locks.Unlock(telegramID)

	ok, remaining, err := s.cooldowns.CanClaimFreeTokens(ctx, telegramID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check free token cooldown: %w", err)
	}
	if !ok {
		s.metrics.RecordFreeClaim(false)
		return nil, &CooldownError{Remaining: remaining}
	}

	if _, _, err := s.EnsureUser(ctx, telegramID, username); err != nil {
		return nil, err
	}
	user, err := s.GrantFreeTokens(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if err := s.cooldowns.RecordClaim(ctx, telegramID, now); err != nil {
		// The grant is committed; a lost timestamp only shortens the next wait.
		log.Error().Err(err).Int64("user_id", telegramID).Msg("Failed to record free token claim")
	}

	s.metrics.RecordFreeClaim(true)
	log.Info().Int64("user_id", telegramID).Int64("amount", s.cfg.FreeGrant).Int64("balance", user.Balance).Msg("Free tokens granted")
	return user, nil
}

// NextFreeClaim returns how long until the user may claim free tokens again.
func (s *LedgerService) NextFreeClaim(ctx context.Context, telegramID int64) (time.Duration, error) {
	_, remaining, err := s.cooldowns.CanClaimFreeTokens(ctx, telegramID, s.now())
	return remaining, err
}

// AwardWin credits winnings not tied to a round and records them for the leaderboard.
func (s *LedgerService) AwardWin(ctx context.Context, rec *model.GameRecord) (*model.User, error) {
	user, err := s.records.AwardWin(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to award win: %w", err)
	}
	return user, nil
}

// History returns the user's most recent ledger entries.
func (s *LedgerService) History(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListByUser(ctx, telegramID, limit)
}
