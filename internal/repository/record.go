package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arcade-bot/internal/model"
)

// RecordRepository stores winning results and aggregates them into leaderboards.
type RecordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository creates a new RecordRepository instance.
func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

func insertRecord(ctx context.Context, q querier, rec *model.GameRecord) error {
	if rec.Points <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, rec.Points)
	}

	const query = `
		INSERT INTO game_records (user_id, chat_id, game, points, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`
	err := q.QueryRow(ctx, query, rec.UserID, rec.ChatID, rec.Game, rec.Points).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game record: %w", err)
	}
	return nil
}

// AwardWin credits the points and stores the record in one transaction.
// Used for winnings that are not tied to a round, such as a grid game cash-out.
func (r *RecordRepository) AwardWin(ctx context.Context, rec *model.GameRecord) (*model.User, error) {
	if rec.Points <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, rec.Points)
	}

	txType := model.TxTypePayout
	if rec.Game == model.GameCookie {
		txType = model.TxTypeCookie
	}

	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		u, err := credit(ctx, tx, rec.UserID, rec.Points)
		if err != nil {
			return err
		}
		if _, err := insertTransaction(ctx, tx, rec.UserID, rec.Points, txType, nil, nil); err != nil {
			return err
		}
		if err := insertRecord(ctx, tx, rec); err != nil {
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

// Leaderboard sums points per user in a chat since the given time, highest first.
// A zero since means no lower bound. Users whose sum is not positive are omitted.
func (r *RecordRepository) Leaderboard(ctx context.Context, chatID int64, since time.Time, limit int) ([]*model.LeaderboardEntry, error) {
	builder := sq.Select("r.user_id", "u.username", "SUM(r.points) AS points").
		From("game_records r").
		Join("users u ON u.telegram_id = r.user_id").
		Where(sq.Eq{"r.chat_id": chatID}).
		GroupBy("r.user_id", "u.username").
		Having("SUM(r.points) > 0").
		OrderBy("points DESC", "r.user_id").
		PlaceholderFormat(sq.Dollar)
	if !since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"r.created_at": since})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Points); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}
	return entries, nil
}

// UserPoints sums one user's points in a chat since the given time.
func (r *RecordRepository) UserPoints(ctx context.Context, chatID, userID int64, since time.Time) (int64, error) {
	builder := sq.Select("COALESCE(SUM(points), 0)").
		From("game_records").
		Where(sq.Eq{"chat_id": chatID, "user_id": userID}).
		PlaceholderFormat(sq.Dollar)
	if !since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"created_at": since})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build points query: %w", err)
	}

	var points int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&points); err != nil {
		return 0, fmt.Errorf("failed to get user points: %w", err)
	}
	return points, nil
}
