package handler

import (
	"strings"

	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/game"
	"arcade-bot/internal/model"
)

// MenuPrefix prefixes the callback data of game menu buttons.
const MenuPrefix = "game_"

// MenuMarkup builds the game menu, one button per row: the round games in
// order, then the grid game.
func MenuMarkup(games []game.Game) *tele.ReplyMarkup {
	rows := make([][]tele.InlineButton, 0, len(games)+1)
	for _, g := range games {
		rows = append(rows, []tele.InlineButton{{Text: GameLabel(g), Data: MenuPrefix + string(g.Type())}})
	}
	rows = append(rows, []tele.InlineButton{{Text: cookieLabel, Data: MenuPrefix + string(model.GameCookie)}})
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

// ParseMenuCallback returns the game chosen from the menu.
func ParseMenuCallback(data string) (model.GameType, bool) {
	data = strings.TrimPrefix(data, "\f")
	if !strings.HasPrefix(data, MenuPrefix) {
		return "", false
	}
	return model.ParseGameType(strings.TrimPrefix(data, MenuPrefix))
}
