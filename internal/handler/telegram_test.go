package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/config"
	"arcade-bot/internal/cooldown"
	"arcade-bot/internal/game/catalog"
	"arcade-bot/internal/game/cookie"
	"arcade-bot/internal/pkg/lock"
	"arcade-bot/internal/repository/memstore"
	"arcade-bot/internal/service"
)

const (
	testChatID = int64(-100)
	aliceID    = int64(1)
	bobID      = int64(2)
)

type apiCall struct {
	Method string
	Params map[string]any
}

func (c apiCall) str(key string) string {
	s, _ := c.Params[key].(string)
	return s
}

// fakeTelegram answers Bot API calls the way Telegram does and records them.
type fakeTelegram struct {
	mu     sync.Mutex
	calls  []apiCall
	dice   []int
	fail   map[string]bool
	nextID int
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	var params map[string]any
	_ = json.NewDecoder(r.Body).Decode(&params)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, apiCall{Method: method, Params: params})

	w.Header().Set("Content-Type", "application/json")
	if f.fail[method] {
		fmt.Fprint(w, `{"ok":false,"error_code":500,"description":"Internal Server Error"}`)
		return
	}
	if method == "answerCallbackQuery" {
		fmt.Fprint(w, `{"ok":true,"result":true}`)
		return
	}

	chatID, _ := strconv.ParseInt(fmt.Sprint(params["chat_id"]), 10, 64)
	msg := map[string]any{
		"message_id": f.nextID,
		"date":       time.Now().Unix(),
		"chat":       map[string]any{"id": chatID, "type": "group"},
	}
	if id, ok := params["message_id"]; ok {
		msg["message_id"], _ = strconv.Atoi(fmt.Sprint(id))
	} else {
		f.nextID++
	}
	if text, ok := params["text"]; ok {
		msg["text"] = text
	}
	if method == "sendDice" {
		v := f.dice[0]
		f.dice = f.dice[1:]
		msg["dice"] = map[string]any{"emoji": params["emoji"], "value": v}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": msg})
}

func (f *fakeTelegram) failOn(method string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = fail
}

func (f *fakeTelegram) called(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// last returns the most recent call to method.
func (f *fakeTelegram) last(t *testing.T, method string) apiCall {
	t.Helper()
	calls := f.called(method)
	require.NotEmpty(t, calls, "no %s call", method)
	return calls[len(calls)-1]
}

// lastCell places every mine at the end of the grid.
type lastCell struct{}

func (lastCell) IntN(n int) int { return n - 1 }

// testEnv wires the services over the in-memory store and a bot that talks
// to a fake Telegram.
type testEnv struct {
	tg      *fakeTelegram
	bot     *tele.Bot
	ledger  *service.LedgerService
	rounds  *service.RoundService
	cookies *service.CookieService
}

func newTestEnv(t *testing.T, dice ...int) *testEnv {
	t.Helper()
	tg := &fakeTelegram{dice: dice, fail: map[string]bool{}, nextID: 100}
	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	b, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "test", Offline: true})
	require.NoError(t, err)

	store := memstore.New()
	tracker := cooldown.NewTracker(cooldown.NewMemoryStore(), cooldown.Config{Play: 10 * time.Second, FreeTokens: 2 * time.Hour})
	locks := lock.NewUserLock()
	registry, err := catalog.New(config.PayoutConfig{})
	require.NoError(t, err)

	ledger := service.NewLedgerService(store.Users(), store.Records(), store.Transactions(), tracker, locks, nil,
		service.LedgerConfig{FreeGrant: 10000})
	rounds := service.NewRoundService(ledger, store.Rounds(), registry, tracker, locks, nil,
		service.RoundConfig{Bet: 300, Timeout: 5 * time.Second})
	manager, err := cookie.NewManager(cookie.Config{GridSize: 3, MineCount: 1, CellReward: 500}, lastCell{}, ledger)
	require.NoError(t, err)

	return &testEnv{
		tg:      tg,
		bot:     b,
		ledger:  ledger,
		rounds:  rounds,
		cookies: service.NewCookieService(manager, ledger, tracker, locks, nil),
	}
}

func user(id int64) *tele.User {
	names := map[int64]string{aliceID: "alice", bobID: "bob"}
	return &tele.User{ID: id, Username: names[id]}
}

// command builds the context of a text command sent by from.
func (e *testEnv) command(from int64, text string) tele.Context {
	return e.bot.NewContext(tele.Update{Message: &tele.Message{
		ID:     1,
		Text:   text,
		Sender: user(from),
		Chat:   &tele.Chat{ID: testChatID, Type: tele.ChatGroup},
	}})
}

// press builds the context of a button press by from on message msgID.
func (e *testEnv) press(from int64, msgID int, data string) tele.Context {
	return e.bot.NewContext(tele.Update{Callback: &tele.Callback{
		ID:     "cb",
		Data:   data,
		Sender: user(from),
		Message: &tele.Message{
			ID:   msgID,
			Chat: &tele.Chat{ID: testChatID, Type: tele.ChatGroup},
		},
	}})
}

func (e *testEnv) fund(t *testing.T, id int64) {
	t.Helper()
	_, err := e.ledger.ClaimFreeTokens(context.Background(), id, user(id).Username, time.Now())
	require.NoError(t, err)
}
