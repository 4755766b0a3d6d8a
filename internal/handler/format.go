package handler

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/game"
	"arcade-bot/internal/game/slot"
	"arcade-bot/internal/model"
	"arcade-bot/internal/service"
)

var gameEmoji = map[model.GameType]string{
	model.GameDart:       "🎯",
	model.GameDice:       "🎲",
	model.GameBasketball: "🏀",
	model.GameFootball:   "⚽️",
	model.GameSlot:       "🎰",
	model.GameBowling:    "🎳",
	model.GameCookie:     "🍪",
}

// cookieLabel labels the grid game, which is not a registered round game.
const cookieLabel = "🍪 Cookie"

// label renders a game type with its display name.
func label(t model.GameType, name string) string {
	if e, ok := gameEmoji[t]; ok {
		return e + " " + name
	}
	return name
}

// GameLabel renders the menu and message label of a game.
func GameLabel(g game.Game) string { return label(g.Type(), g.Name()) }

var verdictText = map[model.GameType][2]string{ // lose, win
	model.GameDart:       {"❌ Missed the center.", "🎯 Bullseye!"},
	model.GameBasketball: {"❌ Missed the hoop.", "🏀 Nothing but net!"},
	model.GameFootball:   {"❌ Missed the goal.", "⚽️ Goal!"},
	model.GameBowling:    {"❌ No strike this time.", "🎳 Strike! All pins down!"},
}

// DisplayName returns the name used to address a user in chat.
func DisplayName(u *tele.User) string {
	if u == nil {
		return "player"
	}
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "player"
}

// FormatWait renders a remaining wait rounded up to whole seconds.
func FormatWait(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	switch {
	case secs >= 3600:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	case secs >= 60:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// FormatRound renders a settled round.
func FormatRound(username string, res *service.RoundResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@%s played %s\n", username, label(res.Game, res.GameName))

	switch res.Game {
	case model.GameDice:
		if res.Won() {
			fmt.Fprintf(&b, "🎲 Rolled %d and %d. 🎉 Double!", res.Outcomes[0], res.Outcomes[1])
		} else {
			fmt.Fprintf(&b, "🎲 Rolled %d and %d. ❌ No double.", res.Outcomes[0], res.Outcomes[1])
		}
	case model.GameSlot:
		code := res.Outcomes[0]
		if jp, ok := slot.Jackpots[code]; ok {
			fmt.Fprintf(&b, "🎰 %s 🎉 x%d!", strings.Repeat(slot.SymbolEmoji[jp.Symbol], 3), jp.Multiplier)
		} else {
			l, c, r := slot.DecodeReels(code)
			fmt.Fprintf(&b, "🎰 %s %s %s ❌ No luck.", slot.SymbolEmoji[l], slot.SymbolEmoji[c], slot.SymbolEmoji[r])
		}
	default:
		texts := verdictText[res.Game]
		if res.Won() {
			b.WriteString(texts[1])
		} else {
			b.WriteString(texts[0])
		}
	}

	if res.Won() {
		fmt.Fprintf(&b, "\n💰 +%d tokens", res.Payout)
	} else {
		fmt.Fprintf(&b, "\n💸 -%d tokens", res.Bet)
	}
	fmt.Fprintf(&b, "\nBalance: %d", res.Balance)
	return b.String()
}

var periodTitles = map[model.Period]string{
	model.PeriodHour:  "⏱ Last hour",
	model.PeriodDay:   "📅 Last 24 hours",
	model.PeriodWeek:  "📅 Last 7 days",
	model.PeriodMonth: "📅 Last 30 days",
	model.PeriodAll:   "🏆 All time",
}

// FormatLeaderboard renders a chat leaderboard.
func FormatLeaderboard(period model.Period, entries []*model.LeaderboardEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s leaderboard:\n", periodTitles[period])
	if len(entries) == 0 {
		b.WriteString("No winners yet.")
		return b.String()
	}
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. @%s: %d points\n", i+1, e.Username, e.Points)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
