// Package memstore is an in-process implementation of the repository contracts.
// It backs the memory driver and the service tests. A single mutex makes every
// operation atomic, the same guarantee the PostgreSQL repositories get from
// database transactions.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"arcade-bot/internal/model"
	"arcade-bot/internal/repository"
)

// Store holds all state. Use the typed views to access it.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	users   map[int64]*model.User
	rounds  map[string]*model.Round
	records []model.GameRecord
	ledger  []model.Transaction
}

// New creates an empty store.
func New() *Store {
	return &Store{
		now:    time.Now,
		users:  make(map[int64]*model.User),
		rounds: make(map[string]*model.Round),
	}
}

// SetClock replaces the time source. Tests use it to move records and rounds in time.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Users returns the account view.
func (s *Store) Users() *Users { return &Users{s} }

// Rounds returns the round journal view.
func (s *Store) Rounds() *Rounds { return &Rounds{s} }

// Records returns the leaderboard history view.
func (s *Store) Records() *Records { return &Records{s} }

// Transactions returns the ledger view.
func (s *Store) Transactions() *Transactions { return &Transactions{s} }

func (s *Store) appendLedger(userID, amount int64, txType string, roundID *string, description string) {
	entry := model.Transaction{
		ID:        int64(len(s.ledger) + 1),
		UserID:    userID,
		Amount:    amount,
		Type:      txType,
		RoundID:   roundID,
		CreatedAt: s.now(),
	}
	if description != "" {
		entry.Description = &description
	}
	s.ledger = append(s.ledger, entry)
}

func (s *Store) appendRecord(rec *model.GameRecord) {
	rec.ID = int64(len(s.records) + 1)
	rec.CreatedAt = s.now()
	s.records = append(s.records, *rec)
}

func (s *Store) user(id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) debit(id, amount int64) (*model.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", repository.ErrInvalidAmount, amount)
	}
	u, err := s.user(id)
	if err != nil {
		return nil, err
	}
	if u.Balance < amount {
		return nil, repository.ErrInsufficientFunds
	}
	u.Balance -= amount
	u.UpdatedAt = s.now()
	return u, nil
}

func (s *Store) credit(id, amount int64) (*model.User, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: %d", repository.ErrInvalidAmount, amount)
	}
	u, err := s.user(id)
	if err != nil {
		return nil, err
	}
	u.Balance += amount
	u.UpdatedAt = s.now()
	return u, nil
}

func copyUser(u *model.User) *model.User {
	c := *u
	return &c
}

// Users implements the account store.
type Users struct{ s *Store }

// GetByID retrieves a user by Telegram ID.
func (v *Users) GetByID(_ context.Context, telegramID int64) (*model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, err := v.s.user(telegramID)
	if err != nil {
		return nil, err
	}
	return copyUser(u), nil
}

// GetOrCreate retrieves a user, creating the account with initialBalance on first use.
func (v *Users) GetOrCreate(_ context.Context, telegramID int64, username string, initialBalance int64) (*model.User, bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if u, ok := v.s.users[telegramID]; ok {
		return copyUser(u), false, nil
	}
	if initialBalance < 0 {
		return nil, false, fmt.Errorf("%w: %d", repository.ErrInvalidAmount, initialBalance)
	}
	now := v.s.now()
	u := &model.User{TelegramID: telegramID, Username: username, Balance: initialBalance, CreatedAt: now, UpdatedAt: now}
	v.s.users[telegramID] = u
	if initialBalance > 0 {
		v.s.appendLedger(telegramID, initialBalance, model.TxTypeInitial, nil, "")
	}
	return copyUser(u), true, nil
}

// UpdateUsername updates a user's display name.
func (v *Users) UpdateUsername(_ context.Context, telegramID int64, username string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, err := v.s.user(telegramID)
	if err != nil {
		return err
	}
	u.Username = username
	u.UpdatedAt = v.s.now()
	return nil
}

// Debit subtracts amount and writes a ledger entry.
func (v *Users) Debit(_ context.Context, telegramID, amount int64, txType, description string) (*model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, err := v.s.debit(telegramID, amount)
	if err != nil {
		return nil, err
	}
	v.s.appendLedger(telegramID, -amount, txType, nil, description)
	return copyUser(u), nil
}

// Credit adds amount and writes a ledger entry.
func (v *Users) Credit(_ context.Context, telegramID, amount int64, txType, description string) (*model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, err := v.s.credit(telegramID, amount)
	if err != nil {
		return nil, err
	}
	v.s.appendLedger(telegramID, amount, txType, nil, description)
	return copyUser(u), nil
}

// Rounds implements the round journal.
type Rounds struct{ s *Store }

// Reserve debits the stake and opens the round.
func (v *Rounds) Reserve(_ context.Context, round *model.Round) (*model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if round.Bet <= 0 {
		return nil, fmt.Errorf("%w: %d", repository.ErrInvalidAmount, round.Bet)
	}
	if _, exists := v.s.rounds[round.ID]; exists {
		return nil, fmt.Errorf("round %s already exists", round.ID)
	}
	u, err := v.s.debit(round.UserID, round.Bet)
	if err != nil {
		return nil, err
	}
	round.Status = model.RoundReserved
	round.CreatedAt = v.s.now()
	stored := *round
	v.s.rounds[round.ID] = &stored
	id := round.ID
	v.s.appendLedger(round.UserID, -round.Bet, model.TxTypeBet, &id, "")
	return copyUser(u), nil
}

func (v *Rounds) reserved(roundID string) (*model.Round, error) {
	r, ok := v.s.rounds[roundID]
	if !ok {
		return nil, repository.ErrRoundNotFound
	}
	if r.Status != model.RoundReserved {
		return nil, repository.ErrRoundClosed
	}
	return r, nil
}

// Settle closes a reserved round and credits a positive payout.
func (v *Rounds) Settle(_ context.Context, roundID string, outcomes []int, payout int64) (*model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if payout < 0 {
		return nil, fmt.Errorf("%w: %d", repository.ErrInvalidAmount, payout)
	}
	r, err := v.reserved(roundID)
	if err != nil {
		return nil, err
	}
	u, err := v.s.credit(r.UserID, payout)
	if err != nil {
		return nil, err
	}

	now := v.s.now()
	r.Status = model.RoundSettled
	r.Payout = payout
	r.SettledAt = &now
	r.Outcomes = make([]int32, len(outcomes))
	for i, o := range outcomes {
		r.Outcomes[i] = int32(o)
	}
	if payout > 0 {
		id := roundID
		v.s.appendLedger(r.UserID, payout, model.TxTypePayout, &id, "")
		v.s.appendRecord(&model.GameRecord{UserID: r.UserID, ChatID: r.ChatID, Game: r.Game, Points: payout})
	}
	return copyUser(u), nil
}

// Refund voids a reserved round and returns the stake.
func (v *Rounds) Refund(_ context.Context, roundID string) (*model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	r, err := v.reserved(roundID)
	if err != nil {
		return nil, err
	}
	u, err := v.s.credit(r.UserID, r.Bet)
	if err != nil {
		return nil, err
	}
	now := v.s.now()
	r.Status = model.RoundRefunded
	r.SettledAt = &now
	id := roundID
	v.s.appendLedger(r.UserID, r.Bet, model.TxTypeRefund, &id, "")
	return copyUser(u), nil
}

// GetByID retrieves a round by ID.
func (v *Rounds) GetByID(_ context.Context, roundID string) (*model.Round, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	r, ok := v.s.rounds[roundID]
	if !ok {
		return nil, repository.ErrRoundNotFound
	}
	c := *r
	return &c, nil
}

// ListStale returns reserved rounds opened before the cutoff, oldest first.
func (v *Rounds) ListStale(_ context.Context, before time.Time, limit int) ([]*model.Round, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var stale []*model.Round
	for _, r := range v.s.rounds {
		if r.Status == model.RoundReserved && r.CreatedAt.Before(before) {
			c := *r
			stale = append(stale, &c)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// Records implements the leaderboard history.
type Records struct{ s *Store }

// AwardWin credits the points and stores the record.
func (v *Records) AwardWin(_ context.Context, rec *model.GameRecord) (*model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if rec.Points <= 0 {
		return nil, fmt.Errorf("%w: %d", repository.ErrInvalidAmount, rec.Points)
	}
	u, err := v.s.credit(rec.UserID, rec.Points)
	if err != nil {
		return nil, err
	}
	txType := model.TxTypePayout
	if rec.Game == model.GameCookie {
		txType = model.TxTypeCookie
	}
	v.s.appendLedger(rec.UserID, rec.Points, txType, nil, "")
	v.s.appendRecord(rec)
	return copyUser(u), nil
}

func (v *Records) inWindow(r *model.GameRecord, chatID int64, since time.Time) bool {
	return r.ChatID == chatID && (since.IsZero() || !r.CreatedAt.Before(since))
}

// Leaderboard sums points per user in a chat since the given time, highest first.
func (v *Records) Leaderboard(_ context.Context, chatID int64, since time.Time, limit int) ([]*model.LeaderboardEntry, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	totals := make(map[int64]int64)
	for i := range v.s.records {
		if r := &v.s.records[i]; v.inWindow(r, chatID, since) {
			totals[r.UserID] += r.Points
		}
	}

	entries := make([]*model.LeaderboardEntry, 0, len(totals))
	for userID, points := range totals {
		if points <= 0 {
			continue
		}
		var name string
		if u, ok := v.s.users[userID]; ok {
			name = u.Username
		}
		entries = append(entries, &model.LeaderboardEntry{UserID: userID, Username: name, Points: points})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// UserPoints sums one user's points in a chat since the given time.
func (v *Records) UserPoints(_ context.Context, chatID, userID int64, since time.Time) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var sum int64
	for i := range v.s.records {
		if r := &v.s.records[i]; r.UserID == userID && v.inWindow(r, chatID, since) {
			sum += r.Points
		}
	}
	return sum, nil
}

// Transactions implements the ledger reader.
type Transactions struct{ s *Store }

// ListByUser returns a user's most recent ledger entries, newest first.
func (v *Transactions) ListByUser(_ context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []*model.Transaction
	for i := len(v.s.ledger) - 1; i >= 0; i-- {
		if v.s.ledger[i].UserID != userID {
			continue
		}
		e := v.s.ledger[i]
		out = append(out, &e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SumByUser returns the sum of a user's ledger entries.
func (v *Transactions) SumByUser(_ context.Context, userID int64) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var sum int64
	for _, e := range v.s.ledger {
		if e.UserID == userID {
			sum += e.Amount
		}
	}
	return sum, nil
}
