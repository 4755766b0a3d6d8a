// Package catalog assembles the registry of single-round games from the payout table.
package catalog

import (
	"fmt"

	"arcade-bot/internal/config"
	"arcade-bot/internal/game"
	"arcade-bot/internal/game/dice"
	"arcade-bot/internal/game/slot"
	"arcade-bot/internal/game/target"
)

// New registers every single-round game. Zero payouts fall back to the game defaults.
func New(p config.PayoutConfig) (*game.Registry, error) {
	registry := game.NewRegistry()
	games := []game.Game{
		target.Dart(p.Dart),
		dice.New(&dice.Config{Base: p.DiceBase}),
		target.Basketball(p.Basketball),
		target.Football(p.Football),
		slot.New(&slot.Config{Base: p.SlotBase}),
		target.Bowling(p.Bowling),
	}
	for _, g := range games {
		if err := registry.Register(g); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", g.Type(), err)
		}
	}
	return registry, nil
}
