package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/game/outcome"
	"arcade-bot/internal/model"
)

// DiceSender is the part of the bot API used to throw animated dice.
type DiceSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

var diceByGame = map[model.GameType]*tele.Dice{
	model.GameDart:       tele.Dart,
	model.GameDice:       tele.Cube,
	model.GameBasketball: tele.Ball,
	model.GameFootball:   tele.Goal,
	model.GameSlot:       tele.Slot,
	model.GameBowling:    tele.Bowl,
}

// AnimationDurations is how long each dice animation plays before its value is shown.
var AnimationDurations = map[model.GameType]time.Duration{
	model.GameDart:       3 * time.Second,
	model.GameDice:       3900 * time.Millisecond,
	model.GameBasketball: 4400 * time.Millisecond,
	model.GameFootball:   4300 * time.Millisecond,
	model.GameSlot:       2100 * time.Millisecond,
	model.GameBowling:    3500 * time.Millisecond,
}

// ErrNoDice is returned when the platform answers without a dice value.
var ErrNoDice = errors.New("message carries no dice")

// DiceRoller draws outcomes with the platform's animated dice. The platform
// picks the value, so every roll is visible in the chat.
type DiceRoller struct {
	sender  DiceSender
	chat    tele.Recipient
	replyTo *tele.Message
	wait    bool
}

var _ outcome.Provider = (*DiceRoller)(nil)

// NewDiceRoller creates a roller for one round. With wait set, Roll returns
// only after the animation has finished.
func NewDiceRoller(sender DiceSender, chat tele.Recipient, replyTo *tele.Message, wait bool) *DiceRoller {
	return &DiceRoller{sender: sender, chat: chat, replyTo: replyTo, wait: wait}
}

// Roll throws one die for game and returns its value.
func (r *DiceRoller) Roll(ctx context.Context, game model.GameType) (int, error) {
	dice, ok := diceByGame[game]
	if !ok {
		return 0, fmt.Errorf("%w: %s", outcome.ErrUnknownGame, game)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg, err := r.sender.Send(r.chat, dice, &tele.SendOptions{ReplyTo: r.replyTo, AllowWithoutReply: true})
	if err != nil {
		return 0, fmt.Errorf("failed to send %s dice: %w", game, err)
	}
	if msg == nil || msg.Dice == nil {
		return 0, ErrNoDice
	}

	if r.wait {
		timer := time.NewTimer(AnimationDurations[game])
		defer timer.Stop()
		// The value is public once sent, so cancellation only cuts the wait short.
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	return msg.Dice.Value, nil
}
