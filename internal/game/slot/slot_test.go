package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"arcade-bot/internal/game"
)

func TestResolve_Jackpots(t *testing.T) {
	g := New(&Config{Base: 300})

	tests := []struct {
		code   int
		name   string
		payout int64
	}{
		{1, "bar", 600},
		{22, "grape", 1200},
		{43, "lemon", 900},
		{64, "seven", 2100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := g.Resolve([]int{tt.code})
			require.NoError(t, err)
			assert.Equal(t, game.VerdictWin, res.Verdict)
			assert.Equal(t, tt.payout, res.Payout)
			assert.Equal(t, tt.name, res.Combination)
		})
	}
}

// Each jackpot code shows its own symbol on all three reels.
func TestJackpots_MatchReels(t *testing.T) {
	require.Len(t, Jackpots, 4)
	for code, jp := range Jackpots {
		assert.Equal(t, code, jp.Code)
		l, c, r := DecodeReels(code)
		assert.Equal(t, [3]int{jp.Symbol, jp.Symbol, jp.Symbol}, [3]int{l, c, r}, "code %d", code)
		assert.Equal(t, SymbolNames[l], jp.Name())
	}
	assert.Equal(t, SymbolGrape, Jackpots[22].Symbol)
}

func TestResolve_Losses(t *testing.T) {
	g := New(nil)
	for _, code := range []int{2, 21, 23, 42, 44, 63} {
		res, err := g.Resolve([]int{code})
		require.NoError(t, err)
		assert.Equal(t, game.VerdictLose, res.Verdict, "code %d", code)
		assert.Equal(t, int64(0), res.Payout)
	}
}

func TestResolve_Invalid(t *testing.T) {
	g := New(nil)
	for _, outcomes := range [][]int{{0}, {65}, {}, {1, 1}} {
		_, err := g.Resolve(outcomes)
		assert.ErrorIs(t, err, game.ErrInvalidOutcome)
	}
}

func TestDecodeReels(t *testing.T) {
	tests := []struct {
		code                int
		left, center, right int
	}{
		{1, SymbolBar, SymbolBar, SymbolBar},
		{22, SymbolGrape, SymbolGrape, SymbolGrape},
		{43, SymbolLemon, SymbolLemon, SymbolLemon},
		{64, SymbolSeven, SymbolSeven, SymbolSeven},
		{2, SymbolGrape, SymbolBar, SymbolBar},
		{5, SymbolBar, SymbolGrape, SymbolBar},
		{17, SymbolBar, SymbolBar, SymbolGrape},
	}
	for _, tt := range tests {
		l, c, r := DecodeReels(tt.code)
		assert.Equal(t, [3]int{tt.left, tt.center, tt.right}, [3]int{l, c, r}, "code %d", tt.code)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		code := rapid.IntRange(1, Faces).Draw(t, "code")
		l, c, r := DecodeReels(code)
		for _, s := range []int{l, c, r} {
			if s < SymbolBar || s > SymbolSeven {
				t.Fatalf("code %d decoded to symbol %d", code, s)
			}
		}
		if got := EncodeReels(l, c, r); got != code {
			t.Fatalf("round trip %d -> (%d,%d,%d) -> %d", code, l, c, r, got)
		}
	})
}

// Only the four table codes pay, and they are exactly the codes whose reels all match.
func TestPayoutProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := rapid.Int64Range(1, 1000).Draw(t, "base")
		code := rapid.IntRange(1, Faces).Draw(t, "code")

		res, err := New(&Config{Base: base}).Resolve([]int{code})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		jp, listed := Jackpots[code]
		l, c, r := DecodeReels(code)
		triple := l == c && c == r

		if listed != triple {
			t.Fatalf("code %d: listed=%v triple=%v", code, listed, triple)
		}
		if listed && res.Payout != jp.Multiplier*base {
			t.Fatalf("code %d paid %d, want %d", code, res.Payout, jp.Multiplier*base)
		}
		if !listed && (res.Payout != 0 || res.Won()) {
			t.Fatalf("code %d is not a jackpot but paid %d", code, res.Payout)
		}
	})
}
