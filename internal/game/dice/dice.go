// Package dice implements the two-dice game: both dice are rolled and a
// double pays the base amount times the rolled value.
package dice

import (
	"arcade-bot/internal/game"
	"arcade-bot/internal/model"
)

// DefaultBase is the default per-pip payout of a double.
const DefaultBase = 300

// Game implements game.Game for the dice double.
type Game struct {
	base int64
}

var _ game.Game = (*Game)(nil)

// Config holds configuration for the dice game.
type Config struct {
	Base int64
}

// New creates a dice game. A nil config or non-positive base uses DefaultBase.
func New(cfg *Config) *Game {
	base := int64(DefaultBase)
	if cfg != nil && cfg.Base > 0 {
		base = cfg.Base
	}
	return &Game{base: base}
}

// Type returns the game identifier.
func (d *Game) Type() model.GameType { return model.GameDice }

// Name returns the display name.
func (d *Game) Name() string { return "Dice" }

// Command returns the chat command.
func (d *Game) Command() string { return "dice" }

// Draws returns 2.
func (d *Game) Draws() int { return 2 }

// Faces returns 6.
func (d *Game) Faces() int { return 6 }

// Base returns the per-pip payout.
func (d *Game) Base() int64 { return d.base }

// Resolve pays base times the value when both dice match.
func (d *Game) Resolve(outcomes []int) (*game.Result, error) {
	if err := game.CheckOutcomes(d, outcomes); err != nil {
		return nil, err
	}
	payout := CalculatePayout(outcomes[0], outcomes[1], d.base)
	if payout == 0 {
		return game.Lose(outcomes), nil
	}
	return game.Win(outcomes, payout, "double"), nil
}

// CalculatePayout returns base*dice1 for a double and 0 otherwise.
func CalculatePayout(dice1, dice2 int, base int64) int64 {
	if dice1 != dice2 {
		return 0
	}
	return base * int64(dice1)
}
