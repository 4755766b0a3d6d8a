package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/model"
)

func TestGame_CommandPlaysRound(t *testing.T) {
	e := newTestEnv(t, 6)
	e.fund(t, aliceID)
	h := NewGameHandler(e.rounds, false)

	require.NoError(t, h.Handle(model.GameDart)(e.command(aliceID, "/dart")))

	dice := e.tg.last(t, "sendDice")
	assert.Equal(t, string(tele.Dart.Type), dice.str("emoji"))
	assert.Equal(t, "1", dice.str("reply_to_message_id"))

	text := e.tg.last(t, "sendMessage").str("text")
	assert.Contains(t, text, "@alice played 🎯 Dart")
	assert.Contains(t, text, "Bullseye")
	assert.Contains(t, text, "Balance: 11200")
}

func TestGame_SlotShowsReels(t *testing.T) {
	e := newTestEnv(t, 22)
	e.fund(t, aliceID)
	h := NewGameHandler(e.rounds, false)

	require.NoError(t, h.Handle(model.GameSlot)(e.command(aliceID, "/slot")))
	text := e.tg.last(t, "sendMessage").str("text")
	assert.Contains(t, text, "played 🎰 Slot Machine")
	assert.Contains(t, text, "🍇🍇🍇")
	assert.Contains(t, text, "x4")
}

func TestGame_ErrorsAreExplained(t *testing.T) {
	e := newTestEnv(t, 1)
	h := NewGameHandler(e.rounds, false)

	require.NoError(t, h.Handle(model.GameDart)(e.command(aliceID, "/dart")))
	assert.Contains(t, e.tg.last(t, "sendMessage").str("text"), "Not enough tokens: a round costs 300")
	assert.Empty(t, e.tg.called("sendDice"))

	e.fund(t, aliceID)
	require.NoError(t, h.Handle(model.GameDart)(e.command(aliceID, "/dart")))
	require.NoError(t, h.Handle(model.GameDart)(e.command(aliceID, "/dart")))
	assert.Contains(t, e.tg.last(t, "sendMessage").str("text"), "before playing 🎯 Dart again")
	assert.Len(t, e.tg.called("sendDice"), 1)
}

func TestGame_FailedDiceRefundsStake(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, aliceID)
	e.tg.failOn("sendDice", true)
	h := NewGameHandler(e.rounds, false)

	require.NoError(t, h.Handle(model.GameBowling)(e.command(aliceID, "/bowling")))
	assert.Contains(t, e.tg.last(t, "sendMessage").str("text"), "Something went wrong")

	balance, err := e.ledger.Balance(context.Background(), aliceID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)
}

func TestGame_MenuChoiceRepliesToMenu(t *testing.T) {
	e := newTestEnv(t, 3)
	e.fund(t, aliceID)
	h := NewGameHandler(e.rounds, false)

	require.NoError(t, h.HandleMenuChoice(e.press(aliceID, 55, "game_football"), model.GameFootball))

	assert.Len(t, e.tg.called("answerCallbackQuery"), 1)
	assert.Equal(t, "55", e.tg.last(t, "sendDice").str("reply_to_message_id"))
	msg := e.tg.last(t, "sendMessage")
	assert.Equal(t, "55", msg.str("reply_to_message_id"))
	assert.Contains(t, msg.str("text"), "Goal!")
}
