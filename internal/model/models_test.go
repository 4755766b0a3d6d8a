package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	for _, name := range []string{"hour", "day", "week", "month", "all"} {
		p, err := ParsePeriod(name)
		require.NoError(t, err)
		assert.Equal(t, Period(name), p)
	}

	_, err := ParsePeriod("year")
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestPeriod_Since(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		period Period
		want   time.Time
	}{
		{PeriodHour, now.Add(-time.Hour)},
		{PeriodDay, now.Add(-24 * time.Hour)},
		{PeriodWeek, now.AddDate(0, 0, -7)},
		{PeriodMonth, now.AddDate(0, 0, -30)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			since, bounded := tt.period.Since(now)
			assert.True(t, bounded)
			assert.Equal(t, tt.want, since)
		})
	}

	_, bounded := PeriodAll.Since(now)
	assert.False(t, bounded)
}

func TestParseGameType(t *testing.T) {
	for _, g := range append(RoundGames(), GameCookie) {
		got, ok := ParseGameType(string(g))
		assert.True(t, ok)
		assert.Equal(t, g, got)
	}
	_, ok := ParseGameType("roulette")
	assert.False(t, ok)
}
