package cookie

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// CallbackPrefix is the prefix of all cookie callback data.
const CallbackPrefix = "cookie_"

// ClaimCallback is the callback data of the cash-out button.
const ClaimCallback = CallbackPrefix + "claim"

// Cell glyphs.
var CellText = map[Cell]string{
	CellClosed:      "⬜️",
	CellPrize:       "🍪",
	CellMine:        "💣",
	CellHiddenPrize: "🥠",
}

// Action is a decoded button press.
type Action struct {
	Claim bool
	X, Y  int
}

// EncodeReveal encodes the callback data of cell (x, y).
func EncodeReveal(x, y int) string {
	return fmt.Sprintf("%s%d_%d", CallbackPrefix, x, y)
}

// DecodeCallback parses cookie callback data. The second result is false for
// data that does not belong to the game.
func DecodeCallback(data string) (Action, bool) {
	data = strings.TrimPrefix(data, "\f")
	if data == ClaimCallback {
		return Action{Claim: true}, true
	}
	if !strings.HasPrefix(data, CallbackPrefix) {
		return Action{}, false
	}
	parts := strings.Split(strings.TrimPrefix(data, CallbackPrefix), "_")
	if len(parts) != 2 {
		return Action{}, false
	}
	x, errX := strconv.Atoi(parts[0])
	y, errY := strconv.Atoi(parts[1])
	if errX != nil || errY != nil {
		return Action{}, false
	}
	return Action{X: x, Y: y}, true
}

// BuildKeyboard renders the grid as inline buttons, one row per grid row.
// An active game gets a final cash-out row showing the current reward.
func BuildKeyboard(snap Snapshot) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := make([][]tele.InlineButton, 0, len(snap.Cells)+1)

	for y, line := range snap.Cells {
		row := make([]tele.InlineButton, len(line))
		for x, c := range line {
			row[x] = tele.InlineButton{Text: CellText[c], Data: EncodeReveal(x, y)}
		}
		rows = append(rows, row)
	}

	if !snap.State.Terminal() {
		rows = append(rows, []tele.InlineButton{{
			Text: fmt.Sprintf("💰 Cash out (%d tokens)", snap.Reward),
			Data: ClaimCallback,
		}})
	}

	markup.InlineKeyboard = rows
	return markup
}
