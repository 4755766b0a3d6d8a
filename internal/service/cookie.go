package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"arcade-bot/internal/cooldown"
	"arcade-bot/internal/game/cookie"
	"arcade-bot/internal/model"
	"arcade-bot/internal/pkg/lock"
	"arcade-bot/internal/pkg/metrics"
)

// CookieService admits players to the grid game and forwards their moves to the
// session manager. Starting a game is free but shares the play cooldown.
type CookieService struct {
	manager   *cookie.Manager
	ledger    *LedgerService
	cooldowns *cooldown.Tracker
	locks     *lock.UserLock
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewCookieService creates a new CookieService instance.
func NewCookieService(
	manager *cookie.Manager,
	ledger *LedgerService,
	cooldowns *cooldown.Tracker,
	locks *lock.UserLock,
	m *metrics.Metrics,
) *CookieService {
	if locks == nil {
		locks = lock.NewUserLock()
	}
	return &CookieService{
		manager:   manager,
		ledger:    ledger,
		cooldowns: cooldowns,
		locks:     locks,
		metrics:   m,
		now:       time.Now,
	}
}

// Config returns the grid settings.
func (s *CookieService) Config() cookie.Config { return s.manager.Config() }

// Admit checks that the player may start a grid game and opens their account.
// Returns a *CooldownError while the window is open. The cooldown starts only
// once Open has created the session.
func (s *CookieService) Admit(ctx context.Context, userID int64, username string) error {
	return s.locks.WithLockContext(ctx, userID, func() error {
		if err := s.checkCooldown(ctx, userID, s.now()); err != nil {
			return err
		}
		_, _, err := s.ledger.EnsureUser(ctx, userID, username)
		return err
	})
}

// Open creates the session hosted by the given message and starts the owner's
// cooldown. The cooldown is checked again, since two boards may have been sent
// before either session opened.
func (s *CookieService) Open(ctx context.Context, key cookie.SessionKey, owner int64) (cookie.Snapshot, error) {
	var snap cookie.Snapshot
	err := s.locks.WithLock(owner, func() error {
		now := s.now()
		if err := s.checkCooldown(ctx, owner, now); err != nil {
			return err
		}
		var err error
		if snap, err = s.manager.Start(key, owner); err != nil {
			return err
		}
		if err := s.cooldowns.RecordPlay(ctx, owner, model.GameCookie, now); err != nil {
			log.Warn().Err(err).Int64("user_id", owner).Msg("Failed to record play cooldown")
		}
		return nil
	})
	return snap, err
}

func (s *CookieService) checkCooldown(ctx context.Context, userID int64, now time.Time) error {
	ok, remaining, err := s.cooldowns.CanPlay(ctx, userID, model.GameCookie, now)
	if err != nil {
		return fmt.Errorf("failed to check cooldown: %w", err)
	}
	if !ok {
		return &CooldownError{Remaining: remaining}
	}
	return nil
}

// Reveal opens a cell on behalf of actor.
func (s *CookieService) Reveal(key cookie.SessionKey, actor int64, x, y int) (cookie.RevealOutcome, cookie.Snapshot, error) {
	return s.manager.Reveal(key, actor, x, y)
}

// Claim cashes out on behalf of actor.
func (s *CookieService) Claim(ctx context.Context, key cookie.SessionKey, actor int64) (cookie.PaidClaim, cookie.Snapshot, error) {
	paid, snap, err := s.manager.Claim(ctx, key, actor)
	if err != nil {
		return paid, snap, err
	}
	s.metrics.RecordCookieClaim(paid.Kind.String(), paid.Amount)
	return paid, snap, nil
}

// Sweep drops finished sessions and sessions idle longer than ttl.
func (s *CookieService) Sweep(ttl time.Duration) int {
	removed := s.manager.Sweep(s.now(), ttl)
	if removed > 0 {
		log.Info().Int("removed", removed).Int("active", s.manager.Active()).Msg("Cookie sessions swept")
	}
	return removed
}

// Active returns the number of live sessions.
func (s *CookieService) Active() int { return s.manager.Active() }
