// Package target implements the single-draw throw games: dart, basketball,
// football and bowling. Each draws one value in 1..6 and pays a fixed amount
// when the value falls in the game's winning set.
package target

import (
	"slices"

	"arcade-bot/internal/game"
	"arcade-bot/internal/model"
)

// Faces of the single draw.
const Faces = 6

// Default fixed payouts.
const (
	DefaultDartPayout       = 1500
	DefaultBasketballPayout = 750
	DefaultFootballPayout   = 500
	DefaultBowlingPayout    = 1500
)

// Game is a fixed-payout throw game.
type Game struct {
	kind    model.GameType
	name    string
	winning []int
	payout  int64
}

var _ game.Game = (*Game)(nil)

// Dart wins on a bullseye (6).
func Dart(payout int64) *Game {
	return newGame(model.GameDart, "Dart", []int{6}, payout, DefaultDartPayout)
}

// Basketball wins when the ball goes in (4 or 5).
func Basketball(payout int64) *Game {
	return newGame(model.GameBasketball, "Basketball", []int{4, 5}, payout, DefaultBasketballPayout)
}

// Football wins on a goal (3, 4 or 5).
func Football(payout int64) *Game {
	return newGame(model.GameFootball, "Football", []int{3, 4, 5}, payout, DefaultFootballPayout)
}

// Bowling wins on a strike (6).
func Bowling(payout int64) *Game {
	return newGame(model.GameBowling, "Bowling", []int{6}, payout, DefaultBowlingPayout)
}

func newGame(kind model.GameType, name string, winning []int, payout, fallback int64) *Game {
	if payout <= 0 {
		payout = fallback
	}
	return &Game{kind: kind, name: name, winning: winning, payout: payout}
}

// Type returns the game identifier.
func (g *Game) Type() model.GameType { return g.kind }

// Name returns the display name.
func (g *Game) Name() string { return g.name }

// Command returns the chat command.
func (g *Game) Command() string { return string(g.kind) }

// Draws returns 1.
func (g *Game) Draws() int { return 1 }

// Faces returns 6.
func (g *Game) Faces() int { return Faces }

// Payout returns the fixed win amount.
func (g *Game) Payout() int64 { return g.payout }

// Resolve pays the fixed amount when the outcome is in the winning set.
func (g *Game) Resolve(outcomes []int) (*game.Result, error) {
	if err := game.CheckOutcomes(g, outcomes); err != nil {
		return nil, err
	}
	if slices.Contains(g.winning, outcomes[0]) {
		return game.Win(outcomes, g.payout, ""), nil
	}
	return game.Lose(outcomes), nil
}
