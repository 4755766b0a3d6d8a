package memstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"arcade-bot/internal/model"
	"arcade-bot/internal/repository"
)

func TestRounds_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _, err := s.Users().GetOrCreate(ctx, 1, "player", 1000)
	require.NoError(t, err)

	round := &model.Round{ID: "r1", UserID: 1, ChatID: -100, Game: model.GameDart, Bet: 300}
	user, err := s.Rounds().Reserve(ctx, round)
	require.NoError(t, err)
	assert.Equal(t, int64(700), user.Balance)

	user, err = s.Rounds().Settle(ctx, "r1", []int{6}, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(2200), user.Balance)

	_, err = s.Rounds().Settle(ctx, "r1", []int{6}, 1500)
	assert.ErrorIs(t, err, repository.ErrRoundClosed)
	_, err = s.Rounds().Refund(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrRoundNotFound)

	stored, err := s.Rounds().GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RoundSettled, stored.Status)
	assert.Equal(t, []int32{6}, stored.Outcomes)

	points, err := s.Records().UserPoints(ctx, -100, 1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), points)
}

func TestRecords_LeaderboardWindow(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	for _, id := range []int64{1, 2} {
		_, _, err := s.Users().GetOrCreate(ctx, id, fmt.Sprintf("user%d", id), 0)
		require.NoError(t, err)
	}

	_, err := s.Records().AwardWin(ctx, &model.GameRecord{UserID: 1, ChatID: -100, Game: model.GameCookie, Points: 5000})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.Records().AwardWin(ctx, &model.GameRecord{UserID: 2, ChatID: -100, Game: model.GameCookie, Points: 500})
	require.NoError(t, err)

	hour, err := s.Records().Leaderboard(ctx, -100, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, hour, 1)
	assert.Equal(t, "user2", hour[0].Username)

	all, err := s.Records().Leaderboard(ctx, -100, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].UserID)

	other, err := s.Records().Leaderboard(ctx, -200, time.Time{}, 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

// TestLedgerMatchesBalanceProperty checks that after any sequence of operations
// the balance is never negative and equals the sum of the user's ledger entries.
func TestLedgerMatchesBalanceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		s := New()
		initial := rapid.Int64Range(0, 2000).Draw(t, "initial")
		_, _, err := s.Users().GetOrCreate(ctx, 1, "player", initial)
		if err != nil {
			t.Fatal(err)
		}

		var open []string
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			amount := rapid.Int64Range(1, 1500).Draw(t, "amount")
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0:
				_, _ = s.Users().Credit(ctx, 1, amount, model.TxTypeCredit, "")
			case 1:
				_, _ = s.Users().Debit(ctx, 1, amount, model.TxTypeDebit, "")
			case 2:
				id := fmt.Sprintf("r%d", i)
				if _, err := s.Rounds().Reserve(ctx, &model.Round{ID: id, UserID: 1, Game: model.GameDice, Bet: amount}); err == nil {
					open = append(open, id)
				}
			case 3:
				if len(open) > 0 {
					_, _ = s.Rounds().Settle(ctx, open[0], []int{1, 1}, amount)
					open = open[1:]
				}
			case 4:
				if len(open) > 0 {
					_, _ = s.Rounds().Refund(ctx, open[0])
					open = open[1:]
				}
			}

			user, err := s.Users().GetByID(ctx, 1)
			if err != nil {
				t.Fatal(err)
			}
			if user.Balance < 0 {
				t.Fatalf("balance went negative: %d", user.Balance)
			}
			sum, _ := s.Transactions().SumByUser(ctx, 1)
			if sum != user.Balance {
				t.Fatalf("ledger sum %d != balance %d", sum, user.Balance)
			}
		}
	})
}
