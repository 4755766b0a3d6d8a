package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"arcade-bot/internal/model"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTracker() *Tracker {
	return NewTracker(NewMemoryStore(), Config{})
}

func TestCanPlay_Window(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()

	ok, _, err := tr.CanPlay(ctx, 1, model.GameDart, t0)
	require.NoError(t, err)
	assert.True(t, ok, "first play is always allowed")

	require.NoError(t, tr.RecordPlay(ctx, 1, model.GameDart, t0))

	ok, left, err := tr.CanPlay(ctx, 1, model.GameDart, t0.Add(9900*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 100*time.Millisecond, left)

	ok, left, err = tr.CanPlay(ctx, 1, model.GameDart, t0.Add(10*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, left)
}

func TestCanPlay_PerGameAndUser(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()
	require.NoError(t, tr.RecordPlay(ctx, 1, model.GameDart, t0))

	ok, _, _ := tr.CanPlay(ctx, 1, model.GameDice, t0.Add(time.Second))
	assert.True(t, ok, "other game is independent")

	ok, _, _ = tr.CanPlay(ctx, 2, model.GameDart, t0.Add(time.Second))
	assert.True(t, ok, "other user is independent")
}

func TestRecordPlay_Overwrites(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()
	require.NoError(t, tr.RecordPlay(ctx, 1, model.GameSlot, t0))
	require.NoError(t, tr.RecordPlay(ctx, 1, model.GameSlot, t0.Add(8*time.Second)))

	ok, _, _ := tr.CanPlay(ctx, 1, model.GameSlot, t0.Add(12*time.Second))
	assert.False(t, ok, "window restarts from the latest play")
}

func TestFreeTokens_Window(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()

	ok, _, err := tr.CanClaimFreeTokens(ctx, 5, t0)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tr.RecordClaim(ctx, 5, t0))

	ok, left, err := tr.CanClaimFreeTokens(ctx, 5, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3600*time.Second, left)

	ok, _, err = tr.CanClaimFreeTokens(ctx, 5, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
}

// A play is allowed exactly when at least the window has passed since the last one.
func TestCanPlayProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		window := time.Duration(rapid.IntRange(1, 120).Draw(t, "windowSec")) * time.Second
		elapsed := time.Duration(rapid.Int64Range(0, int64(3*window)).Draw(t, "elapsed"))

		tr := NewTracker(NewMemoryStore(), Config{Play: window})
		if err := tr.RecordPlay(ctx, 1, model.GameBowling, t0); err != nil {
			t.Fatal(err)
		}

		ok, left, err := tr.CanPlay(ctx, 1, model.GameBowling, t0.Add(elapsed))
		if err != nil {
			t.Fatal(err)
		}
		if ok != (elapsed >= window) {
			t.Fatalf("elapsed %v window %v: ok=%v", elapsed, window, ok)
		}
		if !ok && left != window-elapsed {
			t.Fatalf("remaining %v, want %v", left, window-elapsed)
		}
	})
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 5*time.Second, Remaining(t0, t0.Add(5*time.Second), 10*time.Second))
	assert.Zero(t, Remaining(t0, t0.Add(10*time.Second), 10*time.Second))
	assert.Zero(t, Remaining(t0, t0.Add(time.Hour), 10*time.Second))
	// clock stepped back
	assert.Equal(t, 15*time.Second, Remaining(t0, t0.Add(-5*time.Second), 10*time.Second))
}

func TestMemoryStore_Prune(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "a", t0, time.Second))
	require.NoError(t, s.Set(ctx, "b", t0, time.Hour))

	assert.Equal(t, 1, s.Prune(t0.Add(time.Minute)))
	assert.Equal(t, 1, s.Len())

	_, ok, _ := s.Get(ctx, "a")
	assert.False(t, ok)
	got, ok, _ := s.Get(ctx, "b")
	assert.True(t, ok)
	assert.True(t, got.Equal(t0))
}
