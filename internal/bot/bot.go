// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/config"
	"arcade-bot/internal/game"
	"arcade-bot/internal/game/cookie"
	"arcade-bot/internal/handler"
	"arcade-bot/internal/model"
	"arcade-bot/internal/service"
)

// requestTimeout bounds one Telegram API call, so a dice roll cannot stall a
// round past its deadline.
const requestTimeout = 30 * time.Second

// ErrMissingToken is returned by New without a bot token.
var ErrMissingToken = errors.New("bot token is required")

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot    *tele.Bot
	cfg    *config.Config
	allow  *PrivateAllowlist
	rounds *service.RoundService

	accountHandler *handler.AccountHandler
	gameHandler    *handler.GameHandler
	cookieHandler  *handler.CookieHandler
	rankingHandler *handler.RankingHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config  *config.Config
	Ledger  *service.LedgerService
	Rounds  *service.RoundService
	Ranking *service.RankingService
	Cookies *service.CookieService
	// Offline skips the getMe call. Used in tests.
	Offline bool
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, ErrMissingToken
	}

	pref := tele.Settings{
		Token:   deps.Config.Bot.Token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		Client:  &http.Client{Timeout: requestTimeout},
		Offline: deps.Offline,
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Handler failed")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		allow:          NewPrivateAllowlist(),
		rounds:         deps.Rounds,
		accountHandler: handler.NewAccountHandler(deps.Ledger, deps.Rounds),
		gameHandler:    handler.NewGameHandler(deps.Rounds, deps.Config.Bot.DiceAnimation),
		cookieHandler:  handler.NewCookieHandler(deps.Cookies),
		rankingHandler: handler.NewRankingHandler(deps.Ranking),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.allow))
	b.bot.Use(LoggingMiddleware())
}

// Commands lists the bot commands shown in the client menu.
func Commands(games []game.Game) []tele.Command {
	cmds := []tele.Command{
		{Text: "start", Description: "Open your account and the game menu"},
		{Text: "balance", Description: "Show your token balance"},
		{Text: "free_tokens", Description: "Claim free tokens"},
	}
	for _, g := range games {
		cmds = append(cmds, tele.Command{Text: g.Command(), Description: "Play " + g.Name()})
	}
	cmds = append(cmds,
		tele.Command{Text: "cookie", Description: "Hunt cookies on a mined grid"},
		tele.Command{Text: "stats_hour", Description: "Leaderboard for the last hour"},
		tele.Command{Text: "stats_day", Description: "Leaderboard for the last 24 hours"},
		tele.Command{Text: "stats_week", Description: "Leaderboard for the last 7 days"},
		tele.Command{Text: "stats_month", Description: "Leaderboard for the last 30 days"},
		tele.Command{Text: "stats_all", Description: "All-time leaderboard"},
		tele.Command{Text: "mystats", Description: "Your points in this chat"},
	)
	return cmds
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/free_tokens", b.accountHandler.HandleFreeTokens)

	for _, g := range b.rounds.Games() {
		b.bot.Handle("/"+g.Command(), b.gameHandler.Handle(g.Type()))
	}
	b.bot.Handle("/cookie", b.cookieHandler.HandleCookie)

	for _, p := range []model.Period{model.PeriodHour, model.PeriodDay, model.PeriodWeek, model.PeriodMonth, model.PeriodAll} {
		b.bot.Handle("/stats_"+string(p), b.rankingHandler.HandleStats(p))
	}
	b.bot.Handle("/mystats", b.rankingHandler.HandleMyStats)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// callbackRoute says which handler owns a piece of callback data.
type callbackRoute int

const (
	routeUnknown callbackRoute = iota
	routeMenuGame
	routeMenuCookie
	routeCookie
)

func classifyCallback(data string) (callbackRoute, model.GameType, cookie.Action) {
	if g, ok := handler.ParseMenuCallback(data); ok {
		if g == model.GameCookie {
			return routeMenuCookie, g, cookie.Action{}
		}
		return routeMenuGame, g, cookie.Action{}
	}
	if a, ok := cookie.DecodeCallback(data); ok {
		return routeCookie, "", a
	}
	return routeUnknown, "", cookie.Action{}
}

func (b *Bot) handleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}

	route, g, action := classifyCallback(cb.Data)
	switch route {
	case routeMenuGame:
		return b.gameHandler.HandleMenuChoice(c, g)
	case routeMenuCookie:
		return b.cookieHandler.HandleCookie(c)
	case routeCookie:
		return b.cookieHandler.HandleCallback(c, action)
	}
	log.Debug().Str("data", cb.Data).Msg("Unknown callback")
	return c.Respond()
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.bot.SetCommands(Commands(b.rounds.Games())); err != nil {
		log.Warn().Err(err).Msg("Failed to publish bot commands")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
		b.bot.Start()
	}()

	<-ctx.Done()
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
	<-done
	return nil
}
