package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcade-bot/internal/config"
	"arcade-bot/internal/model"
)

func TestNew_RegistersEveryRoundGame(t *testing.T) {
	registry, err := New(config.PayoutConfig{})
	require.NoError(t, err)

	assert.Equal(t, len(model.RoundGames()), registry.Count())
	for _, g := range model.RoundGames() {
		_, ok := registry.Get(g)
		assert.True(t, ok, "missing %s", g)
	}
	_, ok := registry.Get(model.GameCookie)
	assert.False(t, ok)

	// Menus and commands follow registration order.
	var order []model.GameType
	for _, g := range registry.List() {
		order = append(order, g.Type())
	}
	assert.Equal(t, model.RoundGames(), order)
}

func TestNew_UsesConfiguredPayouts(t *testing.T) {
	registry, err := New(config.PayoutConfig{Dart: 2000, DiceBase: 100})
	require.NoError(t, err)

	res, err := registry.Resolve(model.GameDart, []int{6})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), res.Payout)

	res, err = registry.Resolve(model.GameDice, []int{4, 4})
	require.NoError(t, err)
	assert.Equal(t, int64(400), res.Payout)

	// Unset payouts keep the defaults.
	res, err = registry.Resolve(model.GameBasketball, []int{5})
	require.NoError(t, err)
	assert.Equal(t, int64(750), res.Payout)
}
