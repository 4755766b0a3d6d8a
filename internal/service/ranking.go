package service

import (
	"context"
	"fmt"
	"time"

	"arcade-bot/internal/model"
)

// DefaultTopLimit is the leaderboard size shown in chat.
const DefaultTopLimit = 10

// RankingService answers leaderboard queries over rolling periods.
type RankingService struct {
	records RecordStore
	now     func() time.Time
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(records RecordStore) *RankingService {
	return &RankingService{records: records, now: time.Now}
}

func (s *RankingService) since(period model.Period) time.Time {
	since, _ := period.Since(s.now())
	return since
}

// Top returns a chat's best players for the period, highest points first.
// Players whose total is not positive are omitted.
func (s *RankingService) Top(ctx context.Context, chatID int64, period model.Period, limit int) ([]*model.LeaderboardEntry, error) {
	if _, err := model.ParsePeriod(string(period)); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	entries, err := s.records.Leaderboard(ctx, chatID, s.since(period), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}

// UserStats returns a player's points in a chat for the period.
func (s *RankingService) UserStats(ctx context.Context, chatID, userID int64, period model.Period) (int64, error) {
	if _, err := model.ParsePeriod(string(period)); err != nil {
		return 0, err
	}

	points, err := s.records.UserPoints(ctx, chatID, userID, s.since(period))
	if err != nil {
		return 0, fmt.Errorf("failed to get user stats: %w", err)
	}
	return points, nil
}
