// Package game defines the payout rule interface and registry for single-round games.
// Rules are pure: they turn drawn outcomes into a verdict and payout and never
// touch balances.
package game

import (
	"errors"
	"fmt"

	"arcade-bot/internal/model"
)

// ErrInvalidOutcome is returned when outcomes are out of range or the wrong count.
var ErrInvalidOutcome = errors.New("invalid outcome")

// Verdict is the result class of a round.
type Verdict string

// Verdicts.
const (
	VerdictWin  Verdict = "win"
	VerdictLose Verdict = "lose"
)

// Result is the outcome of resolving one round.
type Result struct {
	Verdict  Verdict
	Payout   int64 // Gross payout, never negative. Zero on a loss.
	Outcomes []int
	// Combination names the winning combination when the game has several, e.g. "seven".
	Combination string
}

// Won reports whether the round paid out.
func (r *Result) Won() bool {
	return r.Verdict == VerdictWin
}

// Game is implemented by every single-round game.
// Adding a game only requires implementing this interface and registering it.
type Game interface {
	// Type returns the game identifier.
	Type() model.GameType

	// Name returns the display name, e.g. "Dart".
	Name() string

	// Command returns the chat command that triggers the game.
	Command() string

	// Draws returns how many outcomes one round consumes.
	Draws() int

	// Faces returns the size of the outcome space of a single draw.
	Faces() int

	// Resolve maps drawn outcomes to a verdict and payout.
	Resolve(outcomes []int) (*Result, error)
}

// Win builds a winning result.
func Win(outcomes []int, payout int64, combination string) *Result {
	return &Result{Verdict: VerdictWin, Payout: payout, Outcomes: outcomes, Combination: combination}
}

// Lose builds a losing result.
func Lose(outcomes []int) *Result {
	return &Result{Verdict: VerdictLose, Outcomes: outcomes}
}

// CheckOutcomes validates the draw count and that every outcome lies in [1, faces].
func CheckOutcomes(g Game, outcomes []int) error {
	if len(outcomes) != g.Draws() {
		return fmt.Errorf("%w: %s needs %d draws, got %d", ErrInvalidOutcome, g.Type(), g.Draws(), len(outcomes))
	}
	for _, v := range outcomes {
		if v < 1 || v > g.Faces() {
			return fmt.Errorf("%w: %s outcome %d outside 1..%d", ErrInvalidOutcome, g.Type(), v, g.Faces())
		}
	}
	return nil
}
