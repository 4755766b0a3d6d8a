package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"arcade-bot/internal/cooldown"
	"arcade-bot/internal/game"
	"arcade-bot/internal/game/outcome"
	"arcade-bot/internal/model"
	"arcade-bot/internal/pkg/lock"
	"arcade-bot/internal/pkg/metrics"
	"arcade-bot/internal/repository"
)

// Round errors.
var (
	ErrUnknownGame = errors.New("unknown game")
	// ErrRoundExpired means stale-round recovery refunded the stake before
	// the outcome could be settled.
	ErrRoundExpired = errors.New("round expired before settlement")
)

// staleBatch bounds how many rounds one recovery pass refunds.
const staleBatch = 100

// PlayRequest identifies who plays what, and where.
type PlayRequest struct {
	UserID   int64
	Username string
	ChatID   int64
	Game     model.GameType
}

// RoundResult is the settled outcome of a round.
type RoundResult struct {
	RoundID     string
	Game        model.GameType
	GameName    string
	Outcomes    []int
	Verdict     game.Verdict
	Combination string
	Payout      int64
	Bet         int64
	Balance     int64
}

// Won reports whether the round paid out.
func (r *RoundResult) Won() bool { return r.Verdict == game.VerdictWin }

// Net returns payout minus stake.
func (r *RoundResult) Net() int64 { return r.Payout - r.Bet }

// RoundService runs single-round games as one reserve/settle transaction pair.
type RoundService struct {
	ledger    *LedgerService
	rounds    RoundStore
	games     *game.Registry
	cooldowns *cooldown.Tracker
	locks     *lock.UserLock
	metrics   *metrics.Metrics
	cfg       RoundConfig
	now       func() time.Time
}

// RoundConfig holds round settings.
type RoundConfig struct {
	Bet int64
	// Timeout bounds the time from reservation to the last draw. It must stay
	// well below the stale-round grace period. Zero means no bound.
	Timeout time.Duration
}

// NewRoundService creates a new RoundService instance.
func NewRoundService(
	ledger *LedgerService,
	rounds RoundStore,
	games *game.Registry,
	cooldowns *cooldown.Tracker,
	locks *lock.UserLock,
	m *metrics.Metrics,
	cfg RoundConfig,
) *RoundService {
	if locks == nil {
		locks = lock.NewUserLock()
	}
	return &RoundService{
		ledger:    ledger,
		rounds:    rounds,
		games:     games,
		cooldowns: cooldowns,
		locks:     locks,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Bet returns the fixed stake per round.
func (s *RoundService) Bet() int64 { return s.cfg.Bet }

// Games returns the playable games in registration order.
func (s *RoundService) Games() []game.Game { return s.games.List() }

// Game returns the game registered for t.
func (s *RoundService) Game(t model.GameType) (game.Game, bool) { return s.games.Get(t) }

// Play runs one round: cooldown check, stake reservation, outcome draw and settlement.
// A round that cannot draw its outcomes before the timeout is refunded. Settlement
// runs to completion even if ctx is canceled once the outcomes are known.
func (s *RoundService) Play(ctx context.Context, req PlayRequest, provider outcome.Provider) (*RoundResult, error) {
	g, ok := s.games.Get(req.Game)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, req.Game)
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	round, err := s.reserve(ctx, req)
	if err != nil {
		return nil, err
	}
	started := s.now()

	outcomes := make([]int, g.Draws())
	for i := range outcomes {
		v, err := provider.Roll(ctx, req.Game)
		if err != nil {
			reason := "roll"
			if errors.Is(err, context.DeadlineExceeded) {
				reason = "timeout"
			}
			s.refund(round, reason)
			return nil, fmt.Errorf("failed to roll %s: %w", req.Game, err)
		}
		outcomes[i] = v
	}

	res, err := s.games.Resolve(req.Game, outcomes)
	if err != nil {
		s.refund(round, "resolve")
		return nil, fmt.Errorf("failed to resolve %s: %w", req.Game, err)
	}

	user, err := s.rounds.Settle(context.WithoutCancel(ctx), round.ID, outcomes, res.Payout)
	if errors.Is(err, repository.ErrRoundClosed) {
		log.Warn().
			Str("round_id", round.ID).
			Int64("user_id", req.UserID).
			Ints("outcomes", outcomes).
			Msg("Round was refunded by recovery before settlement")
		return nil, fmt.Errorf("%w: %s", ErrRoundExpired, round.ID)
	}
	if err != nil {
		log.Error().Err(err).Str("round_id", round.ID).Msg("Failed to settle round, left for recovery")
		return nil, fmt.Errorf("failed to settle round: %w", err)
	}

	s.metrics.RecordRound(string(req.Game), string(res.Verdict), res.Payout, s.now().Sub(started).Seconds())
	log.Info().
		Str("round_id", round.ID).
		Int64("user_id", req.UserID).
		Int64("chat_id", req.ChatID).
		Str("game", string(req.Game)).
		Ints("outcomes", outcomes).
		Int64("payout", res.Payout).
		Int64("balance", user.Balance).
		Msg("Round settled")

	return &RoundResult{
		RoundID:     round.ID,
		Game:        req.Game,
		GameName:    g.Name(),
		Outcomes:    outcomes,
		Verdict:     res.Verdict,
		Combination: res.Combination,
		Payout:      res.Payout,
		Bet:         round.Bet,
		Balance:     user.Balance,
	}, nil
}

// reserve checks the cooldown, debits the stake and starts the cooldown as one
// step per user, so two concurrent requests cannot both pass the check.
func (s *RoundService) reserve(ctx context.Context, req PlayRequest) (*model.Round, error) {
	if err := s.locks.LockContext(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", req.UserID, err)
	}
	defer s.locks.Unlock(req.UserID)

	now := s.now()
	ok, remaining, err := s.cooldowns.CanPlay(ctx, req.UserID, req.Game, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check cooldown: %w", err)
	}
	if !ok {
		return nil, &CooldownError{Remaining: remaining}
	}

	if _, _, err := s.ledger.EnsureUser(ctx, req.UserID, req.Username); err != nil {
		return nil, err
	}

	round := &model.Round{
		ID:     uuid.NewString(),
		UserID: req.UserID,
		ChatID: req.ChatID,
		Game:   req.Game,
		Bet:    s.cfg.Bet,
	}
	if _, err := s.rounds.Reserve(ctx, round); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reserve round: %w", err)
	}

	if err := s.cooldowns.RecordPlay(ctx, req.UserID, req.Game, now); err != nil {
		log.Warn().Err(err).Int64("user_id", req.UserID).Msg("Failed to record play cooldown")
	}
	return round, nil
}

func (s *RoundService) refund(round *model.Round, reason string) {
	if _, err := s.rounds.Refund(context.Background(), round.ID); err != nil {
		log.Error().Err(err).Str("round_id", round.ID).Msg("Failed to refund round, left for recovery")
		return
	}
	s.metrics.RecordRefund(string(round.Game), reason)
	log.Warn().Str("round_id", round.ID).Str("reason", reason).Msg("Round refunded")
}

// RecoverStale refunds rounds that stayed reserved longer than olderThan,
// such as those interrupted by a crash. Returns the number refunded.
func (s *RoundService) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("stale grace period must be positive, got %s", olderThan)
	}
	stale, err := s.rounds.ListStale(ctx, s.now().Add(-olderThan), staleBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale rounds: %w", err)
	}

	refunded := 0
	for _, round := range stale {
		if _, err := s.rounds.Refund(ctx, round.ID); err != nil {
			if errors.Is(err, repository.ErrRoundClosed) {
				continue
			}
			return refunded, fmt.Errorf("failed to refund round %s: %w", round.ID, err)
		}
		refunded++
		s.metrics.RecordRefund(string(round.Game), "stale")
		log.Warn().Str("round_id", round.ID).Int64("user_id", round.UserID).Int64("bet", round.Bet).Msg("Stale round refunded")
	}
	return refunded, nil
}
