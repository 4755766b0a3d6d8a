// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/model"
	"arcade-bot/internal/pkg/lock"
	"arcade-bot/internal/service"
)

// GameHandler handles single-round game commands and menu buttons.
type GameHandler struct {
	rounds    *service.RoundService
	animation bool
}

// NewGameHandler creates a new GameHandler. With animation set, results are
// announced only after the dice animation has finished.
func NewGameHandler(rounds *service.RoundService, animation bool) *GameHandler {
	return &GameHandler{rounds: rounds, animation: animation}
}

// Handle returns the command handler for one game.
func (h *GameHandler) Handle(game model.GameType) tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.play(c, game, c.Message())
	}
}

// HandleMenuChoice plays the game picked from the menu.
func (h *GameHandler) HandleMenuChoice(c tele.Context, game model.GameType) error {
	_ = c.Respond()
	var replyTo *tele.Message
	if cb := c.Callback(); cb != nil {
		replyTo = cb.Message
	}
	return h.play(c, game, replyTo)
}

func (h *GameHandler) play(c tele.Context, game model.GameType, replyTo *tele.Message) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	username := DisplayName(sender)
	req := service.PlayRequest{UserID: sender.ID, Username: username, ChatID: chat.ID, Game: game}
	roller := NewDiceRoller(c.Bot(), chat, replyTo, h.animation)

	res, err := h.rounds.Play(ctx, req, roller)
	if err != nil {
		return c.Send(h.errorText(err, game), &tele.SendOptions{ReplyTo: replyTo, AllowWithoutReply: true})
	}
	return c.Send(FormatRound(username, res), &tele.SendOptions{ReplyTo: replyTo, AllowWithoutReply: true})
}

func (h *GameHandler) errorText(err error, game model.GameType) string {
	var cd *service.CooldownError
	switch {
	case errors.As(err, &cd):
		return fmt.Sprintf("⏳ Wait %s before playing %s again.", FormatWait(cd.Remaining), h.label(game))
	case errors.Is(err, service.ErrInsufficientFunds):
		return fmt.Sprintf("💸 Not enough tokens: a round costs %d. Try /free_tokens.", h.rounds.Bet())
	case errors.Is(err, service.ErrRoundExpired):
		log.Warn().Err(err).Str("game", string(game)).Msg("Round expired")
		return "⌛ This round took too long and your stake was refunded. Please play again."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, lock.ErrLockTimeout):
		log.Warn().Err(err).Str("game", string(game)).Msg("Round timed out")
		return "⌛ Telegram is slow right now. The round was cancelled and no tokens were spent."
	default:
		log.Error().Err(err).Str("game", string(game)).Msg("Round failed")
		return "❌ Something went wrong, please try again later."
	}
}

func (h *GameHandler) label(t model.GameType) string {
	if g, ok := h.rounds.Game(t); ok {
		return GameLabel(g)
	}
	return string(t)
}
