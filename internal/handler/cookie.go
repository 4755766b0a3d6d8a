package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/game/cookie"
	"arcade-bot/internal/service"
)

// CookieHandler runs the grid game through an inline keyboard.
type CookieHandler struct {
	cookies *service.CookieService
}

// NewCookieHandler creates a new CookieHandler.
func NewCookieHandler(cookies *service.CookieService) *CookieHandler {
	return &CookieHandler{cookies: cookies}
}

func (h *CookieHandler) intro(username string, reward int64) string {
	cfg := h.cookies.Config()
	return fmt.Sprintf(
		"🍪 @%s is hunting cookies!\n"+
			"%d mines hide in the %dx%d grid. Every cookie adds %d tokens.\n"+
			"Reward: %d tokens",
		username, cfg.MineCount, cfg.GridSize, cfg.GridSize, cfg.CellReward, reward,
	)
}

// HandleCookie starts a new grid game hosted by a fresh message.
func (h *CookieHandler) HandleCookie(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	if c.Callback() != nil {
		_ = c.Respond()
	}

	username := DisplayName(sender)
	if err := h.cookies.Admit(ctx, sender.ID, username); err != nil {
		var cd *service.CooldownError
		if errors.As(err, &cd) {
			return c.Send(fmt.Sprintf("⏳ Wait %s before starting another cookie hunt.", FormatWait(cd.Remaining)))
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to admit cookie player")
		return c.Send("❌ Something went wrong, please try again later.")
	}

	msg, err := c.Bot().Send(chat, h.intro(username, 0))
	if err != nil {
		return fmt.Errorf("failed to send cookie board: %w", err)
	}

	snap, err := h.cookies.Open(ctx, cookie.SessionKey{ChatID: chat.ID, MessageID: msg.ID}, sender.ID)
	var cd *service.CooldownError
	if errors.As(err, &cd) {
		_, err = c.Bot().Edit(msg, fmt.Sprintf("⏳ Wait %s before starting another cookie hunt.", FormatWait(cd.Remaining)))
		return err
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to open cookie session")
		_, _ = c.Bot().Edit(msg, "❌ Could not start the game.")
		return nil
	}

	_, err = c.Bot().Edit(msg, h.intro(username, 0), cookie.BuildKeyboard(snap))
	return err
}

// HandleCallback applies a button press to the session hosted by the pressed message.
func (h *CookieHandler) HandleCallback(c tele.Context, action cookie.Action) error {
	ctx := context.Background()
	cb := c.Callback()
	sender := c.Sender()
	if cb == nil || cb.Message == nil || sender == nil {
		return nil
	}
	msg := cb.Message
	key := cookie.SessionKey{ChatID: msg.Chat.ID, MessageID: msg.ID}
	username := DisplayName(sender)

	if action.Claim {
		paid, snap, err := h.cookies.Claim(ctx, key, sender.ID)
		if err != nil {
			return h.respondError(c, err)
		}
		switch paid.Kind {
		case cookie.ClaimRejectedNotOwner:
			return c.Respond(&tele.CallbackResponse{Text: cookie.ErrNotOwner.Error(), ShowAlert: true})
		case cookie.ClaimRejectedEmpty:
			return c.Respond(&tele.CallbackResponse{Text: "Open at least one cookie first."})
		}
		_ = c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("+%d tokens", paid.Amount)})
		text := fmt.Sprintf("🍪 @%s cashed out %d tokens!\nBalance: %d", username, paid.Amount, paid.Balance)
		_, err = c.Bot().Edit(msg, text, cookie.BuildKeyboard(snap))
		return err
	}

	out, snap, err := h.cookies.Reveal(key, sender.ID, action.X, action.Y)
	if err != nil {
		return h.respondError(c, err)
	}

	var text string
	switch out.Kind {
	case cookie.RevealAlreadyOpen:
		return c.Respond()
	case cookie.RevealMine:
		text = fmt.Sprintf("💥 Boom! @%s hit a mine and lost the reward.", username)
	default:
		text = h.intro(username, out.Reward)
	}
	_ = c.Respond()
	_, err = c.Bot().Edit(msg, text, cookie.BuildKeyboard(snap))
	return err
}

func (h *CookieHandler) respondError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, cookie.ErrNotOwner):
		return c.Respond(&tele.CallbackResponse{Text: cookie.ErrNotOwner.Error(), ShowAlert: true})
	case errors.Is(err, cookie.ErrSessionNotFound):
		return c.Respond(&tele.CallbackResponse{Text: "This game is over."})
	case errors.Is(err, cookie.ErrOutOfBounds):
		return c.Respond()
	}
	log.Error().Err(err).Msg("Cookie action failed")
	return c.Respond(&tele.CallbackResponse{Text: "Something went wrong, please try again."})
}
