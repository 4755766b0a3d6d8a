package cookie

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"arcade-bot/internal/model"
	"arcade-bot/internal/pkg/lock"
)

// Awarder credits a cash-out to the owner's balance and records it on the
// leaderboard in one step.
type Awarder interface {
	AwardWin(ctx context.Context, rec *model.GameRecord) (*model.User, error)
}

// Snapshot is a consistent copy of a session taken under its lock.
type Snapshot struct {
	Key    SessionKey
	Owner  int64
	Reward int64
	State  State
	Cells  [][]Cell
}

// PaidClaim carries the ledger effect of a successful cash-out.
type PaidClaim struct {
	ClaimOutcome
	Balance int64
}

// Manager owns the active-session table for one process.
type Manager struct {
	cfg     Config
	src     Source
	awarder Awarder
	locks   *lock.KeyLock[SessionKey]
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[SessionKey]*Session
}

// NewManager validates cfg and creates an empty session table.
func NewManager(cfg Config, src Source, awarder Awarder) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:      cfg,
		src:      src,
		awarder:  awarder,
		locks:    lock.New[SessionKey](),
		now:      time.Now,
		sessions: make(map[SessionKey]*Session),
	}, nil
}

// Config returns the grid parameters new sessions use.
func (m *Manager) Config() Config {
	return m.cfg
}

func snapshot(s *Session) Snapshot {
	return Snapshot{Key: s.Key, Owner: s.Owner, Reward: s.Reward, State: s.State, Cells: s.View()}
}

func (m *Manager) lookup(key SessionKey) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	return s, nil
}

// Start creates a session for owner under key.
func (m *Manager) Start(key SessionKey, owner int64) (Snapshot, error) {
	s, err := NewSession(key, owner, m.cfg, m.src, m.now())
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[key]; exists {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSessionExists, key)
	}
	m.sessions[key] = s

	log.Debug().
		Str("session", key.String()).
		Int64("owner", owner).
		Msg("Cookie session started")
	return snapshot(s), nil
}

// Reveal opens a cell on behalf of actor.
func (m *Manager) Reveal(key SessionKey, actor int64, x, y int) (RevealOutcome, Snapshot, error) {
	s, err := m.lookup(key)
	if err != nil {
		return RevealOutcome{}, Snapshot{}, err
	}

	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	out, err := s.Reveal(actor, x, y, m.now())
	if err != nil {
		return RevealOutcome{}, Snapshot{}, err
	}
	if out.Kind == RevealMine {
		log.Debug().Str("session", key.String()).Int64("owner", s.Owner).Msg("Cookie session busted")
	}
	return out, snapshot(s), nil
}

// Claim cashes out on behalf of actor. On success the owner is credited, the
// session becomes Cashed and leaves the table. If the credit fails the session
// stays Active and the claim can be retried.
func (m *Manager) Claim(ctx context.Context, key SessionKey, actor int64) (PaidClaim, Snapshot, error) {
	s, err := m.lookup(key)
	if err != nil {
		return PaidClaim{}, Snapshot{}, err
	}

	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	out := s.Claim(actor)
	if out.Kind != ClaimPaid {
		return PaidClaim{ClaimOutcome: out}, snapshot(s), nil
	}

	user, err := m.awarder.AwardWin(ctx, &model.GameRecord{
		UserID: s.Owner,
		ChatID: key.ChatID,
		Game:   model.GameCookie,
		Points: out.Amount,
	})
	if err != nil {
		return PaidClaim{}, snapshot(s), fmt.Errorf("failed to credit cookie reward: %w", err)
	}

	s.Cash(m.now())
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()

	log.Info().
		Str("session", key.String()).
		Int64("owner", s.Owner).
		Int64("amount", out.Amount).
		Msg("Cookie session cashed out")
	return PaidClaim{ClaimOutcome: out, Balance: user.Balance}, snapshot(s), nil
}

// Sweep drops terminal sessions and active sessions idle for longer than ttl.
// It returns the number of sessions removed.
func (m *Manager) Sweep(now time.Time, ttl time.Duration) int {
	m.mu.RLock()
	keys := make([]SessionKey, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	removed := 0
	for _, k := range keys {
		if !m.locks.TryLock(k) {
			continue // in use right now, not idle
		}
		m.mu.Lock()
		if s, ok := m.sessions[k]; ok && (s.State.Terminal() || now.Sub(s.UpdatedAt) > ttl) {
			delete(m.sessions, k)
			removed++
		}
		m.mu.Unlock()
		m.locks.Unlock(k)
	}
	return removed
}

// Active returns the number of sessions in the table.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
