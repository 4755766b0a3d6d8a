// Package cooldown enforces per-user rate limits: a short window between plays
// of the same game and a long window between free-token claims.
//
// Timestamps are wall-clock. A backwards clock jump lengthens the remaining
// wait, a forward jump shortens it.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"arcade-bot/internal/model"
)

// Default windows.
const (
	DefaultPlayWindow = 10 * time.Second
	DefaultFreeWindow = 2 * time.Hour
)

// Store persists the last time an action happened for a key.
type Store interface {
	// Get returns the recorded time and whether the key exists.
	Get(ctx context.Context, key string) (time.Time, bool, error)
	// Set records t for key. The entry may be dropped once ttl has passed.
	Set(ctx context.Context, key string, t time.Time, ttl time.Duration) error
}

// Tracker answers and records cooldown checks.
type Tracker struct {
	store      Store
	playWindow time.Duration
	freeWindow time.Duration
}

// Config holds the cooldown windows.
type Config struct {
	Play       time.Duration
	FreeTokens time.Duration
}

// NewTracker creates a Tracker. Zero windows fall back to the defaults.
func NewTracker(store Store, cfg Config) *Tracker {
	if cfg.Play <= 0 {
		cfg.Play = DefaultPlayWindow
	}
	if cfg.FreeTokens <= 0 {
		cfg.FreeTokens = DefaultFreeWindow
	}
	return &Tracker{store: store, playWindow: cfg.Play, freeWindow: cfg.FreeTokens}
}

// PlayWindow returns the window between plays.
func (t *Tracker) PlayWindow() time.Duration { return t.playWindow }

// FreeWindow returns the window between free-token claims.
func (t *Tracker) FreeWindow() time.Duration { return t.freeWindow }

// Remaining returns how long until window has elapsed since last. Zero means ready.
func Remaining(last, now time.Time, window time.Duration) time.Duration {
	left := window - now.Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

func playKey(userID int64, game model.GameType) string {
	return fmt.Sprintf("play:%d:%s", userID, game)
}

func claimKey(userID int64) string {
	return fmt.Sprintf("claim:%d", userID)
}

func (t *Tracker) check(ctx context.Context, key string, now time.Time, window time.Duration) (bool, time.Duration, error) {
	last, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return false, 0, fmt.Errorf("failed to read cooldown %s: %w", key, err)
	}
	if !ok {
		return true, 0, nil
	}
	left := Remaining(last, now, window)
	return left == 0, left, nil
}

// CanPlay reports whether the user may play game at now, and the wait otherwise.
func (t *Tracker) CanPlay(ctx context.Context, userID int64, game model.GameType, now time.Time) (bool, time.Duration, error) {
	return t.check(ctx, playKey(userID, game), now, t.playWindow)
}

// RecordPlay stores now as the user's last play of game, overwriting any prior entry.
func (t *Tracker) RecordPlay(ctx context.Context, userID int64, game model.GameType, now time.Time) error {
	if err := t.store.Set(ctx, playKey(userID, game), now, t.playWindow); err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	return nil
}

// CanClaimFreeTokens reports whether the user may claim free tokens at now.
// When not eligible the second result is the time left in the window.
func (t *Tracker) CanClaimFreeTokens(ctx context.Context, userID int64, now time.Time) (bool, time.Duration, error) {
	return t.check(ctx, claimKey(userID), now, t.freeWindow)
}

// RecordClaim stores now as the user's last free-token claim.
func (t *Tracker) RecordClaim(ctx context.Context, userID int64, now time.Time) error {
	if err := t.store.Set(ctx, claimKey(userID), now, t.freeWindow); err != nil {
		return fmt.Errorf("failed to record claim: %w", err)
	}
	return nil
}
