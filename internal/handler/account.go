package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/service"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	ledger *service.LedgerService
	rounds *service.RoundService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger *service.LedgerService, rounds *service.RoundService) *AccountHandler {
	return &AccountHandler{ledger: ledger, rounds: rounds}
}

// HandleStart opens the account on first use and shows the game menu.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	username := DisplayName(sender)
	user, created, err := h.ledger.EnsureUser(ctx, sender.ID, username)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to ensure user")
		return c.Reply("❌ Could not open your account, please try again later.")
	}

	greeting := fmt.Sprintf("👋 Welcome back @%s! Balance: %d tokens.", username, user.Balance)
	if created {
		greeting = fmt.Sprintf("🎉 Welcome @%s! Your account is open with %d tokens.", username, user.Balance)
	}
	return c.Reply(fmt.Sprintf(
		"%s\n\n"+
			"Every round costs %d tokens. Grab %d free tokens with /free_tokens.\n"+
			"Pick a game:",
		greeting, h.rounds.Bet(), h.ledger.FreeGrant(),
	), MenuMarkup(h.rounds.Games()))
}

// HandleBalance displays the user's current balance.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	balance, err := h.ledger.Balance(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to get balance")
		return c.Reply("❌ Could not read your balance.")
	}

	free := "🎁 Free tokens are ready: /free_tokens"
	wait, err := h.ledger.NextFreeClaim(ctx, sender.ID)
	switch {
	case err != nil:
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to check free token cooldown")
		free = ""
	case wait > 0:
		free = fmt.Sprintf("🎁 Next free tokens in %s", FormatWait(wait))
	}

	text := fmt.Sprintf("💰 @%s, your balance: %d tokens", DisplayName(sender), balance)
	if free != "" {
		text += "\n" + free
	}
	return c.Reply(text)
}

// HandleFreeTokens grants free tokens once per claim window.
func (h *AccountHandler) HandleFreeTokens(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, err := h.ledger.ClaimFreeTokens(ctx, sender.ID, DisplayName(sender), time.Now())
	if err != nil {
		var cd *service.CooldownError
		if errors.As(err, &cd) {
			return c.Reply(fmt.Sprintf("⏳ Free tokens are available again in %s.", FormatWait(cd.Remaining)))
		}
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to claim free tokens")
		return c.Reply("❌ Could not grant free tokens, please try again later.")
	}
	return c.Reply(fmt.Sprintf("🎁 +%d tokens! Balance: %d", h.ledger.FreeGrant(), user.Balance))
}
