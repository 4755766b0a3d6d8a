// Package outcome draws uniform random outcomes for mini-games.
package outcome

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"arcade-bot/internal/model"
)

// ErrUnknownGame is returned for a game without an outcome range.
var ErrUnknownGame = errors.New("unknown game")

// Provider yields one uniform integer in the game's closed range per call.
type Provider interface {
	Roll(ctx context.Context, game model.GameType) (int, error)
}

// Source is the randomness behind a Random provider.
type Source interface {
	IntN(n int) int
}

// Range returns the closed outcome range of a single draw.
func Range(game model.GameType) (lo, hi int, err error) {
	switch game {
	case model.GameDart, model.GameBasketball, model.GameFootball, model.GameBowling, model.GameDice:
		return 1, 6, nil
	case model.GameSlot:
		return 1, 64, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrUnknownGame, game)
}

// Random is a Provider over a Source. It is safe for concurrent use.
type Random struct {
	mu  sync.Mutex
	src Source
}

var _ Provider = (*Random)(nil)

// NewRandom creates a provider over src. A nil src uses the global generator.
func NewRandom(src Source) *Random {
	return &Random{src: src}
}

// NewSeeded creates a deterministic provider.
func NewSeeded(seed uint64) *Random {
	return NewRandom(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Roll draws one outcome.
func (r *Random) Roll(ctx context.Context, game model.GameType) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	lo, hi, err := Range(game)
	if err != nil {
		return 0, err
	}
	return lo + r.intN(hi-lo+1), nil
}

// IntN exposes the underlying source so grid placement shares the generator.
func (r *Random) IntN(n int) int {
	return r.intN(n)
}

func (r *Random) intN(n int) int {
	if r.src == nil {
		return rand.IntN(n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.IntN(n)
}

// Fixed replays a scripted sequence of outcomes. Used in tests and replays.
type Fixed struct {
	mu     sync.Mutex
	values []int
}

var _ Provider = (*Fixed)(nil)

// ErrExhausted is returned when a Fixed provider runs out of values.
var ErrExhausted = errors.New("outcome sequence exhausted")

// NewFixed creates a provider that returns values in order.
func NewFixed(values ...int) *Fixed {
	return &Fixed{values: values}
}

// Roll returns the next scripted value after range-checking it.
func (f *Fixed) Roll(_ context.Context, game model.GameType) (int, error) {
	lo, hi, err := Range(game)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 0, ErrExhausted
	}
	v := f.values[0]
	f.values = f.values[1:]
	if v < lo || v > hi {
		return 0, fmt.Errorf("scripted outcome %d outside %d..%d", v, lo, hi)
	}
	return v, nil
}
