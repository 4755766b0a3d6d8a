// Package main is the entry point for the arcade bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"arcade-bot/internal/bot"
	"arcade-bot/internal/config"
	"arcade-bot/internal/cooldown"
	"arcade-bot/internal/game/catalog"
	"arcade-bot/internal/game/cookie"
	"arcade-bot/internal/game/outcome"
	"arcade-bot/internal/ops"
	"arcade-bot/internal/pkg/db"
	"arcade-bot/internal/pkg/lock"
	"arcade-bot/internal/pkg/metrics"
	"arcade-bot/internal/pkg/scheduler"
	"arcade-bot/internal/repository"
	"arcade-bot/internal/repository/memstore"
	"arcade-bot/internal/service"
)

// stores bundles the persistence backends selected by configuration.
type stores struct {
	accounts service.AccountStore
	rounds   service.RoundStore
	records  service.RecordStore
	history  service.LedgerReader
	checks   map[string]ops.HealthCheck
	close    func()
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("driver", cfg.Database.Driver).
		Str("cooldown_backend", cfg.Cooldown.Backend).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer st.close()

	cooldownStore, memCooldowns, closeRedis, err := openCooldownStore(ctx, cfg, st.checks)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cooldown store")
	}
	defer closeRedis()

	tracker := cooldown.NewTracker(cooldownStore, cooldown.Config{
		Play:       cfg.Cooldown.Play,
		FreeTokens: cfg.Cooldown.FreeTokens,
	})
	m := metrics.New()
	userLock := lock.NewUserLock()

	games, err := catalog.New(cfg.Games.Payouts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register games")
	}
	log.Info().
		Int("game_count", games.Count()).
		Strs("games", games.Commands()).
		Msg("Games registered")

	ledger := service.NewLedgerService(st.accounts, st.records, st.history, tracker, userLock, m, service.LedgerConfig{
		InitialBalance: cfg.Economy.InitialBalance,
		FreeGrant:      cfg.Economy.FreeGrant,
	})
	rounds := service.NewRoundService(ledger, st.rounds, games, tracker, userLock, m, service.RoundConfig{
		Bet:     cfg.Economy.Bet,
		Timeout: cfg.Rounds.StaleAfter / 2,
	})
	ranking := service.NewRankingService(st.records)

	manager, err := cookie.NewManager(cookie.Config{
		GridSize:   cfg.Cookie.GridSize,
		MineCount:  cfg.Cookie.MineCount,
		CellReward: cfg.Cookie.CellReward,
	}, outcome.NewRandom(nil), ledger)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid cookie configuration")
	}
	cookies := service.NewCookieService(manager, ledger, tracker, userLock, m)

	if err := m.RegisterGauge("cookie_sessions_active", "Grid game sessions in memory.", func() float64 {
		return float64(cookies.Active())
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}
	if err := m.RegisterGauge("user_locks_active", "Users holding or waiting on a lock.", func() float64 {
		return float64(userLock.Len())
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	sched := scheduler.New(time.Local)
	recoverJob := func(ctx context.Context) error {
		_, err := rounds.RecoverStale(ctx, cfg.Rounds.StaleAfter)
		return err
	}
	sched.RunNow("recover_rounds", recoverJob)
	if _, err := sched.Every("recover_rounds", cfg.Scheduler.RecoverInterval, recoverJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule round recovery")
	}
	if _, err := sched.Every("sweep_cookies", cfg.Scheduler.SweepInterval, func(context.Context) error {
		cookies.Sweep(cfg.Cookie.SessionTTL)
		return nil
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cookie sweep")
	}
	if memCooldowns != nil {
		if _, err := sched.Every("prune_cooldowns", cfg.Scheduler.SweepInterval, func(context.Context) error {
			if n := memCooldowns.Prune(time.Now()); n > 0 {
				log.Debug().Int("pruned", n).Int("left", memCooldowns.Len()).Msg("Cooldowns pruned")
			}
			return nil
		}); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule cooldown pruning")
		}
	}

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:  cfg,
		Ledger:  ledger,
		Rounds:  rounds,
		Ranking: ranking,
		Cookies: cookies,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sched.Start()
	defer sched.Stop()
	log.Info().Int("jobs", sched.Len()).Msg("Scheduler started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return telegramBot.Run(gctx)
	})
	if cfg.Ops.Enabled {
		server := ops.NewServer(cfg.Ops.Addr, cfg.Ops.Mode, ops.Deps{
			Ranker:   ranking,
			Accounts: ledger,
			Metrics:  m.Handler(),
			Checks:   st.checks,
		})
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Shutting down after failure")
		return
	}
	log.Info().Msg("Bot stopped gracefully")
}

// openStores connects the configured storage driver.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage, balances are lost on restart")
		mem := memstore.New()
		return &stores{
			accounts: mem.Users(),
			rounds:   mem.Rounds(),
			records:  mem.Records(),
			history:  mem.Transactions(),
			checks:   map[string]ops.HealthCheck{},
			close:    func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool.Pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &stores{
		accounts: repository.NewUserRepository(pool.Pool),
		rounds:   repository.NewRoundRepository(pool.Pool),
		records:  repository.NewRecordRepository(pool.Pool),
		history:  repository.NewTransactionRepository(pool.Pool),
		checks:   map[string]ops.HealthCheck{"postgres": pool.HealthCheck},
		close:    pool.Close,
	}, nil
}

// openCooldownStore returns the configured cooldown store. The in-memory store
// is also returned on its own so it can be pruned.
func openCooldownStore(ctx context.Context, cfg *config.Config, checks map[string]ops.HealthCheck) (cooldown.Store, *cooldown.MemoryStore, func(), error) {
	if cfg.Cooldown.Backend != config.BackendRedis {
		mem := cooldown.NewMemoryStore()
		return mem, mem, func() {}, nil
	}

	client, err := db.NewRedis(ctx, &cfg.Redis)
	if err != nil {
		return nil, nil, nil, err
	}
	checks["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	return cooldown.NewRedisStore(client, cfg.Redis.Prefix), nil, closer(client), nil
}

func closer(client *redis.Client) func() {
	return func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
