// Package cookie implements the grid reveal game. A square grid hides a fixed
// number of mines; the owner opens cells one at a time, each safe cell adding
// to a running reward, and may cash out at any point. Opening a mine forfeits
// the reward.
package cookie

import (
	"errors"
	"fmt"
	"time"
)

// Defaults.
const (
	DefaultGridSize   = 5
	DefaultMineCount  = 7
	DefaultCellReward = 500
)

// Errors for grid sessions.
var (
	ErrInvalidConfiguration = errors.New("invalid grid configuration")
	ErrNotOwner             = errors.New("only the player who started the game can play it")
	ErrSessionNotFound      = errors.New("game session not found")
	ErrOutOfBounds          = errors.New("cell is outside the grid")
	ErrSessionExists        = errors.New("game session already exists")
)

// SessionKey identifies a session by the chat message that hosts it.
type SessionKey struct {
	ChatID    int64
	MessageID int
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%d:%d", k.ChatID, k.MessageID)
}

// Config holds grid parameters.
type Config struct {
	GridSize   int
	MineCount  int
	CellReward int64
}

// DefaultConfig returns the standard 5x5 grid with 7 mines.
func DefaultConfig() Config {
	return Config{GridSize: DefaultGridSize, MineCount: DefaultMineCount, CellReward: DefaultCellReward}
}

// Validate checks that the grid has room for its mines and at least one safe cell.
func (c Config) Validate() error {
	if c.GridSize <= 0 {
		return fmt.Errorf("%w: grid size %d", ErrInvalidConfiguration, c.GridSize)
	}
	if c.MineCount < 0 || c.MineCount >= c.GridSize*c.GridSize {
		return fmt.Errorf("%w: %d mines on a %dx%d grid", ErrInvalidConfiguration, c.MineCount, c.GridSize, c.GridSize)
	}
	if c.CellReward < 0 {
		return fmt.Errorf("%w: negative cell reward", ErrInvalidConfiguration)
	}
	return nil
}

// State is the session lifecycle state.
type State int

// Session states. Busted and Cashed are terminal.
const (
	StateActive State = iota
	StateBusted
	StateCashed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateBusted:
		return "busted"
	case StateCashed:
		return "cashed"
	}
	return "unknown"
}

// Terminal reports whether no further moves are possible.
func (s State) Terminal() bool {
	return s != StateActive
}

// RevealKind classifies a reveal.
type RevealKind int

// Reveal outcomes.
const (
	RevealAlreadyOpen RevealKind = iota
	RevealMine
	RevealPrize
)

func (k RevealKind) String() string {
	switch k {
	case RevealAlreadyOpen:
		return "already_open"
	case RevealMine:
		return "mine"
	case RevealPrize:
		return "prize"
	}
	return "unknown"
}

// RevealOutcome is the result of opening a cell. Reward is the running total afterwards.
type RevealOutcome struct {
	Kind   RevealKind
	Reward int64
}

// ClaimKind classifies a cash-out attempt.
type ClaimKind int

// Claim outcomes.
const (
	ClaimPaid ClaimKind = iota
	ClaimRejectedNotOwner
	ClaimRejectedEmpty
)

func (k ClaimKind) String() string {
	switch k {
	case ClaimPaid:
		return "paid"
	case ClaimRejectedNotOwner:
		return "rejected_not_owner"
	case ClaimRejectedEmpty:
		return "rejected_empty"
	}
	return "unknown"
}

// ClaimOutcome is the result of a cash-out attempt.
type ClaimOutcome struct {
	Kind   ClaimKind
	Amount int64
}

// Source supplies uniform integers in [0, n).
type Source interface {
	IntN(n int) int
}

// Session is one grid game. It is not safe for concurrent use; Manager serializes access.
type Session struct {
	Key        SessionKey
	Owner      int64
	Size       int
	CellReward int64
	Reward     int64
	State      State
	CreatedAt  time.Time
	UpdatedAt  time.Time

	mines  []bool // row-major, index y*Size+x
	opened []bool
}

// NewSession creates a session with MineCount mines placed uniformly without replacement.
func NewSession(key SessionKey, owner int64, cfg Config, src Source, now time.Time) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cells := cfg.GridSize * cfg.GridSize
	s := &Session{
		Key:        key,
		Owner:      owner,
		Size:       cfg.GridSize,
		CellReward: cfg.CellReward,
		State:      StateActive,
		CreatedAt:  now,
		UpdatedAt:  now,
		mines:      make([]bool, cells),
		opened:     make([]bool, cells),
	}
	for _, idx := range sample(src, cells, cfg.MineCount) {
		s.mines[idx] = true
	}
	return s, nil
}

// sample picks k distinct indices from [0, n) with a partial Fisher-Yates shuffle.
func sample(src Source, n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + src.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

func (s *Session) index(x, y int) (int, error) {
	if x < 0 || y < 0 || x >= s.Size || y >= s.Size {
		return 0, fmt.Errorf("%w: (%d,%d) on a %dx%d grid", ErrOutOfBounds, x, y, s.Size, s.Size)
	}
	return y*s.Size + x, nil
}

// Reveal opens cell (x, y) on behalf of actor.
func (s *Session) Reveal(actor int64, x, y int, now time.Time) (RevealOutcome, error) {
	if actor != s.Owner {
		return RevealOutcome{}, ErrNotOwner
	}
	i, err := s.index(x, y)
	if err != nil {
		return RevealOutcome{}, err
	}
	if s.State.Terminal() || s.opened[i] {
		return RevealOutcome{Kind: RevealAlreadyOpen, Reward: s.Reward}, nil
	}

	s.opened[i] = true
	s.UpdatedAt = now
	if s.mines[i] {
		s.State = StateBusted
		s.Reward = 0
		return RevealOutcome{Kind: RevealMine}, nil
	}
	s.Reward += s.CellReward
	return RevealOutcome{Kind: RevealPrize, Reward: s.Reward}, nil
}

// Claim validates a cash-out by actor. It does not change state; Cash does.
func (s *Session) Claim(actor int64) ClaimOutcome {
	if actor != s.Owner {
		return ClaimOutcome{Kind: ClaimRejectedNotOwner}
	}
	if s.State.Terminal() || s.Reward == 0 {
		return ClaimOutcome{Kind: ClaimRejectedEmpty}
	}
	return ClaimOutcome{Kind: ClaimPaid, Amount: s.Reward}
}

// Cash marks a paid session terminal.
func (s *Session) Cash(now time.Time) {
	s.State = StateCashed
	s.UpdatedAt = now
}

// MineCount returns the number of mines on the grid.
func (s *Session) MineCount() int {
	n := 0
	for _, m := range s.mines {
		if m {
			n++
		}
	}
	return n
}

// Cell is what a player sees in one grid position.
type Cell int

// Cell views.
const (
	CellClosed      Cell = iota // unopened, game in progress
	CellPrize                   // opened safe cell
	CellMine                    // opened mine, or any mine once the game is over
	CellHiddenPrize             // unopened safe cell once the game is over
)

// View projects the grid for display, row by row.
func (s *Session) View() [][]Cell {
	rows := make([][]Cell, s.Size)
	for y := range rows {
		rows[y] = make([]Cell, s.Size)
		for x := range rows[y] {
			i := y*s.Size + x
			switch {
			case s.opened[i] && s.mines[i]:
				rows[y][x] = CellMine
			case s.opened[i]:
				rows[y][x] = CellPrize
			case s.State.Terminal() && s.mines[i]:
				rows[y][x] = CellMine
			case s.State.Terminal():
				rows[y][x] = CellHiddenPrize
			default:
				rows[y][x] = CellClosed
			}
		}
	}
	return rows
}
