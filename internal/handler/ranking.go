package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/model"
	"arcade-bot/internal/service"
)

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	ranking *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(ranking *service.RankingService) *RankingHandler {
	return &RankingHandler{ranking: ranking}
}

// HandleStats returns the handler showing the chat leaderboard for period.
func (h *RankingHandler) HandleStats(period model.Period) tele.HandlerFunc {
	return func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return nil
		}

		entries, err := h.ranking.Top(context.Background(), chat.ID, period, service.DefaultTopLimit)
		if err != nil {
			log.Error().Err(err).Int64("chat_id", chat.ID).Str("period", string(period)).Msg("Failed to get leaderboard")
			return c.Reply("❌ Could not load the leaderboard.")
		}
		return c.Reply(FormatLeaderboard(period, entries))
	}
}

// HandleMyStats shows the sender's points in this chat for every period.
func (h *RankingHandler) HandleMyStats(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 @%s in this chat:", DisplayName(sender))
	for _, p := range []model.Period{model.PeriodHour, model.PeriodDay, model.PeriodWeek, model.PeriodMonth, model.PeriodAll} {
		points, err := h.ranking.UserStats(ctx, chat.ID, sender.ID, p)
		if err != nil {
			log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to get user stats")
			return c.Reply("❌ Could not load your stats.")
		}
		fmt.Fprintf(&b, "\n%s: %d", periodTitles[p], points)
	}
	return c.Reply(b.String())
}
