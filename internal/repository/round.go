package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arcade-bot/internal/model"
)

// RoundRepository journals single-round games. A round is created together with
// its stake debit and leaves the reserved state exactly once.
type RoundRepository struct {
	pool *pgxpool.Pool
}

// NewRoundRepository creates a new RoundRepository instance.
func NewRoundRepository(pool *pgxpool.Pool) *RoundRepository {
	return &RoundRepository{pool: pool}
}

const roundColumns = `id::text, user_id, chat_id, game, bet, outcomes, payout, status, created_at, settled_at`

func scanRound(row pgx.Row) (*model.Round, error) {
	var round model.Round
	err := row.Scan(
		&round.ID,
		&round.UserID,
		&round.ChatID,
		&round.Game,
		&round.Bet,
		&round.Outcomes,
		&round.Payout,
		&round.Status,
		&round.CreatedAt,
		&round.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// Reserve debits the stake and opens the round in one transaction.
// round.ID must be set by the caller.
func (r *RoundRepository) Reserve(ctx context.Context, round *model.Round) (*model.User, error) {
	if round.Bet <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, round.Bet)
	}

	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		u, err := debit(ctx, tx, round.UserID, round.Bet)
		if err != nil {
			return err
		}

		const query = `
			INSERT INTO rounds (id, user_id, chat_id, game, bet, status, created_at)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, NOW())
			RETURNING created_at
		`
		err = tx.QueryRow(ctx, query,
			round.ID, round.UserID, round.ChatID, round.Game, round.Bet, model.RoundReserved,
		).Scan(&round.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create round: %w", err)
		}

		if _, err := insertTransaction(ctx, tx, round.UserID, -round.Bet, model.TxTypeBet, &round.ID, nil); err != nil {
			return err
		}
		round.Status = model.RoundReserved
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Settle closes a reserved round with its outcomes and payout. A positive payout
// is credited and recorded for the leaderboard in the same transaction.
func (r *RoundRepository) Settle(ctx context.Context, roundID string, outcomes []int, payout int64) (*model.User, error) {
	if payout < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, payout)
	}

	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
			UPDATE rounds
			SET status = $2, outcomes = $3, payout = $4, settled_at = NOW()
			WHERE id = $1::uuid AND status = $5
			RETURNING user_id, chat_id, game
		`
		var userID, chatID int64
		var game model.GameType
		err := tx.QueryRow(ctx, query,
			roundID, model.RoundSettled, toInt32(outcomes), payout, model.RoundReserved,
		).Scan(&userID, &chatID, &game)
		if err != nil {
			return closeError(ctx, tx, roundID, err)
		}

		if payout == 0 {
			u, err := getUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			user = u
			return nil
		}

		u, err := credit(ctx, tx, userID, payout)
		if err != nil {
			return err
		}
		if _, err := insertTransaction(ctx, tx, userID, payout, model.TxTypePayout, &roundID, nil); err != nil {
			return err
		}
		if err := insertRecord(ctx, tx, &model.GameRecord{UserID: userID, ChatID: chatID, Game: game, Points: payout}); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Refund voids a reserved round and returns the stake.
func (r *RoundRepository) Refund(ctx context.Context, roundID string) (*model.User, error) {
	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
			UPDATE rounds
			SET status = $2, settled_at = NOW()
			WHERE id = $1::uuid AND status = $3
			RETURNING user_id, bet
		`
		var userID, bet int64
		err := tx.QueryRow(ctx, query, roundID, model.RoundRefunded, model.RoundReserved).Scan(&userID, &bet)
		if err != nil {
			return closeError(ctx, tx, roundID, err)
		}

		u, err := credit(ctx, tx, userID, bet)
		if err != nil {
			return err
		}
		if _, err := insertTransaction(ctx, tx, userID, bet, model.TxTypeRefund, &roundID, nil); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// closeError tells a missing round apart from one that is no longer reserved.
func closeError(ctx context.Context, q querier, roundID string, err error) error {
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to close round: %w", err)
	}
	if _, err := getRound(ctx, q, roundID); err != nil {
		return err
	}
	return ErrRoundClosed
}

// GetByID retrieves a round by ID.
func (r *RoundRepository) GetByID(ctx context.Context, roundID string) (*model.Round, error) {
	return getRound(ctx, r.pool, roundID)
}

func getRound(ctx context.Context, q querier, roundID string) (*model.Round, error) {
	const query = `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1::uuid`

	round, err := scanRound(q.QueryRow(ctx, query, roundID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

// ListStale returns rounds still reserved that were opened before the cutoff, oldest first.
func (r *RoundRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*model.Round, error) {
	const query = `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, model.RoundReserved, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*model.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rounds: %w", err)
	}
	return rounds, nil
}

func toInt32(values []int) []int32 {
	out := make([]int32, len(values))
	for i, v := range values {
		out[i] = int32(v)
	}
	return out
}
