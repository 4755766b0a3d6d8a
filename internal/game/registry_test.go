package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcade-bot/internal/game"
	"arcade-bot/internal/game/dice"
	"arcade-bot/internal/game/slot"
	"arcade-bot/internal/game/target"
	"arcade-bot/internal/model"
)

func newRegistry(t *testing.T) *game.Registry {
	t.Helper()
	r := game.NewRegistry()
	for _, g := range []game.Game{
		target.Dart(0), target.Basketball(0), target.Football(0), target.Bowling(0),
		dice.New(nil), slot.New(nil),
	} {
		require.NoError(t, r.Register(g))
	}
	return r
}

func TestRegistry_Lookup(t *testing.T) {
	r := newRegistry(t)
	assert.Equal(t, 6, r.Count())

	for _, gt := range model.RoundGames() {
		g, ok := r.Get(gt)
		require.True(t, ok, "missing %s", gt)
		assert.Equal(t, gt, g.Type())
	}

	_, ok := r.Get(model.GameCookie)
	assert.False(t, ok)
	assert.Equal(t, []string{"dart", "basketball", "football", "bowling", "dice", "slot"}, r.Commands())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.Register(dice.New(&dice.Config{Base: 10})))

	res, err := r.Resolve(model.GameDice, []int{2, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Payout)
	assert.Equal(t, 6, r.Count())
	assert.Equal(t, "dice", r.List()[4].Command(), "replacement keeps its position")
}

func TestRegistry_RejectsNil(t *testing.T) {
	assert.Error(t, game.NewRegistry().Register(nil))
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	_, err := game.NewRegistry().Resolve(model.GameDart, []int{6})
	assert.Error(t, err)
}
