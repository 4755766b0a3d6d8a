// Package slot implements the slot machine. The platform draws a single code
// in 1..64; only the four triple codes pay, each with its own multiplier of
// the slot base amount.
package slot

import (
	"arcade-bot/internal/game"
	"arcade-bot/internal/model"
)

// DefaultBase is the default amount multiplied by the jackpot multiplier.
const DefaultBase = 300

// Faces is the size of the slot outcome space.
const Faces = 64

// Reel symbols in platform order.
const (
	SymbolBar = iota + 1
	SymbolGrape
	SymbolLemon
	SymbolSeven
)

// SymbolNames maps reel symbols to their names.
var SymbolNames = map[int]string{
	SymbolBar:   "bar",
	SymbolGrape: "grape",
	SymbolLemon: "lemon",
	SymbolSeven: "seven",
}

// SymbolEmoji maps reel symbols to display text.
var SymbolEmoji = map[int]string{
	SymbolBar:   "BAR",
	SymbolGrape: "🍇",
	SymbolLemon: "🍋",
	SymbolSeven: "7️⃣",
}

// Jackpot is a paying slot code: the same symbol on all three reels.
type Jackpot struct {
	Code       int
	Symbol     int
	Multiplier int64
}

// Name returns the name of the jackpot symbol.
func (j Jackpot) Name() string { return SymbolNames[j.Symbol] }

// Jackpots is the paying code table. Every other code loses.
var Jackpots = jackpots(map[int]int64{
	SymbolBar:   2,
	SymbolGrape: 4,
	SymbolLemon: 3,
	SymbolSeven: 7,
})

func jackpots(multipliers map[int]int64) map[int]Jackpot {
	table := make(map[int]Jackpot, len(multipliers))
	for symbol, m := range multipliers {
		code := EncodeReels(symbol, symbol, symbol)
		table[code] = Jackpot{Code: code, Symbol: symbol, Multiplier: m}
	}
	return table
}

// Game implements game.Game for the slot machine.
type Game struct {
	base int64
}

var _ game.Game = (*Game)(nil)

// Config holds configuration for the slot game.
type Config struct {
	Base int64
}

// New creates a slot game. A nil config or non-positive base uses DefaultBase.
func New(cfg *Config) *Game {
	base := int64(DefaultBase)
	if cfg != nil && cfg.Base > 0 {
		base = cfg.Base
	}
	return &Game{base: base}
}

// Type returns the game identifier.
func (s *Game) Type() model.GameType { return model.GameSlot }

// Name returns the display name.
func (s *Game) Name() string { return "Slot Machine" }

// Command returns the chat command.
func (s *Game) Command() string { return "slot" }

// Draws returns 1.
func (s *Game) Draws() int { return 1 }

// Faces returns 64.
func (s *Game) Faces() int { return Faces }

// Base returns the amount multiplied by a jackpot multiplier.
func (s *Game) Base() int64 { return s.base }

// Resolve pays multiplier*base for a jackpot code and nothing otherwise.
func (s *Game) Resolve(outcomes []int) (*game.Result, error) {
	if err := game.CheckOutcomes(s, outcomes); err != nil {
		return nil, err
	}
	jp, ok := Jackpots[outcomes[0]]
	if !ok {
		return game.Lose(outcomes), nil
	}
	return game.Win(outcomes, jp.Multiplier*s.base, jp.Name()), nil
}

// DecodeReels splits a code into its left, center and right reel symbols
// (1-4 each) by reading value-1 as three 2-bit fields. Display only.
func DecodeReels(code int) (left, center, right int) {
	v := code - 1
	left = v&3 + 1
	center = (v>>2)&3 + 1
	right = (v>>4)&3 + 1
	return left, center, right
}

// EncodeReels is the inverse of DecodeReels.
func EncodeReels(left, center, right int) int {
	return ((left - 1) | (center-1)<<2 | (right-1)<<4) + 1
}
