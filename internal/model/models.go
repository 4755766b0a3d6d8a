// Package model defines the data models for the arcade bot.
package model

import (
	"errors"
	"fmt"
	"time"
)

// GameType identifies a mini-game.
type GameType string

// Supported games.
const (
	GameDart       GameType = "dart"
	GameDice       GameType = "dice"
	GameBasketball GameType = "basketball"
	GameFootball   GameType = "football"
	GameBowling    GameType = "bowling"
	GameSlot       GameType = "slot"
	GameCookie     GameType = "cookie"
)

// RoundGames lists the single-round games in menu order.
func RoundGames() []GameType {
	return []GameType{GameDart, GameDice, GameBasketball, GameFootball, GameSlot, GameBowling}
}

// ParseGameType maps a command name to a GameType.
func ParseGameType(s string) (GameType, bool) {
	g := GameType(s)
	switch g {
	case GameDart, GameDice, GameBasketball, GameFootball, GameBowling, GameSlot, GameCookie:
		return g, true
	}
	return "", false
}

// User represents a Telegram user account.
type User struct {
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	Balance    int64     `db:"balance"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Transaction is a ledger entry written with every balance change.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	RoundID     *string   `db:"round_id"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial    = "initial"     // Initial balance on account creation
	TxTypeFreeTokens = "free_tokens" // Periodic free grant
	TxTypeBet        = "bet"         // Round stake reservation
	TxTypePayout     = "payout"      // Round winnings
	TxTypeRefund     = "refund"      // Round voided, stake returned
	TxTypeCookie     = "cookie"      // Grid game cash-out
	TxTypeCredit     = "credit"      // Manual credit
	TxTypeDebit      = "debit"       // Manual debit
)

// RoundStatus is the lifecycle state of a single-round game.
type RoundStatus string

// Round states. A round leaves Reserved exactly once.
const (
	RoundReserved RoundStatus = "reserved"
	RoundSettled  RoundStatus = "settled"
	RoundRefunded RoundStatus = "refunded"
)

// Round is the journal row of one single-round game. ID is the idempotency key.
type Round struct {
	ID        string      `db:"id"`
	UserID    int64       `db:"user_id"`
	ChatID    int64       `db:"chat_id"`
	Game      GameType    `db:"game"`
	Bet       int64       `db:"bet"`
	Outcomes  []int32     `db:"outcomes"`
	Payout    int64       `db:"payout"`
	Status    RoundStatus `db:"status"`
	CreatedAt time.Time   `db:"created_at"`
	SettledAt *time.Time  `db:"settled_at"`
}

// GameRecord is one leaderboard history row. Only positive results are stored.
type GameRecord struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ChatID    int64     `db:"chat_id"`
	Game      GameType  `db:"game"`
	Points    int64     `db:"points"`
	CreatedAt time.Time `db:"created_at"`
}

// LeaderboardEntry is a user's summed points within a period.
type LeaderboardEntry struct {
	UserID   int64  `db:"user_id" json:"user_id"`
	Username string `db:"username" json:"username"`
	Points   int64  `db:"points" json:"points"`
}

// Period is a leaderboard window.
type Period string

// Leaderboard periods. All windows except PeriodAll are rolling.
const (
	PeriodHour  Period = "hour"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ErrUnknownPeriod is returned by ParsePeriod.
var ErrUnknownPeriod = errors.New("unknown leaderboard period")

// ParsePeriod parses a period name.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	switch p {
	case PeriodHour, PeriodDay, PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Window returns the length of the period, or 0 for PeriodAll.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodHour:
		return time.Hour
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	}
	return 0
}

// Since returns the lower bound of the period relative to now.
// The second result is false for PeriodAll, which has no bound.
func (p Period) Since(now time.Time) (time.Time, bool) {
	w := p.Window()
	if w == 0 {
		return time.Time{}, false
	}
	return now.Add(-w), true
}
