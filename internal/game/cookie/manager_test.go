package cookie

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"arcade-bot/internal/model"
)

type fakeAwarder struct {
	mu       sync.Mutex
	balances map[int64]int64
	records  []*model.GameRecord
	fail     error
}

func newFakeAwarder() *fakeAwarder {
	return &fakeAwarder{balances: make(map[int64]int64)}
}

func (f *fakeAwarder) AwardWin(_ context.Context, rec *model.GameRecord) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.balances[rec.UserID] += rec.Points
	f.records = append(f.records, rec)
	return &model.User{TelegramID: rec.UserID, Balance: f.balances[rec.UserID]}, nil
}

func newManager(t *testing.T, aw Awarder) *Manager {
	t.Helper()
	m, err := NewManager(DefaultConfig(), seeded(11), aw)
	require.NoError(t, err)
	m.now = func() time.Time { return t0 }
	return m
}

func safeCell(t fataler, m *Manager, key SessionKey) (int, int) {
	s, err := m.lookup(key)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	return firstCell(t, s, false)
}

func TestNewManager_InvalidConfig(t *testing.T) {
	_, err := NewManager(Config{GridSize: 2, MineCount: 4}, seeded(1), newFakeAwarder())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestManager_StartTwice(t *testing.T) {
	m := newManager(t, newFakeAwarder())
	key := SessionKey{ChatID: -100, MessageID: 5}

	_, err := m.Start(key, 1)
	require.NoError(t, err)
	_, err = m.Start(key, 2)
	assert.ErrorIs(t, err, ErrSessionExists)
	assert.Equal(t, 1, m.Active())
}

func TestManager_UnknownSession(t *testing.T) {
	m := newManager(t, newFakeAwarder())
	key := SessionKey{ChatID: 1, MessageID: 1}

	_, _, err := m.Reveal(key, 1, 0, 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, _, err = m.Claim(context.Background(), key, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.get(key)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_ClaimCreditsAndRemoves(t *testing.T) {
	aw := newFakeAwarder()
	m := newManager(t, aw)
	key := SessionKey{ChatID: -100, MessageID: 7}

	_, err := m.Start(key, 42)
	require.NoError(t, err)

	x, y := safeCell(t, m, key)
	out, snap, err := m.Reveal(key, 42, x, y)
	require.NoError(t, err)
	assert.Equal(t, RevealPrize, out.Kind)
	assert.Equal(t, int64(500), snap.Reward)

	paid, snap, err := m.Claim(context.Background(), key, 42)
	require.NoError(t, err)
	assert.Equal(t, ClaimPaid, paid.Kind)
	assert.Equal(t, int64(500), paid.Amount)
	assert.Equal(t, int64(500), paid.Balance)
	assert.Equal(t, StateCashed, snap.State)
	assert.Equal(t, 0, m.Active())

	require.Len(t, aw.records, 1)
	assert.Equal(t, model.GameCookie, aw.records[0].Game)
	assert.Equal(t, int64(-100), aw.records[0].ChatID)

	_, _, err = m.Claim(context.Background(), key, 42)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_ClaimEmptyIsNoop(t *testing.T) {
	aw := newFakeAwarder()
	m := newManager(t, aw)
	key := SessionKey{ChatID: 1, MessageID: 1}
	_, err := m.Start(key, 1)
	require.NoError(t, err)

	paid, snap, err := m.Claim(context.Background(), key, 1)
	require.NoError(t, err)
	assert.Equal(t, ClaimRejectedEmpty, paid.Kind)
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, 1, m.Active())
	assert.Empty(t, aw.records)
}

func TestManager_ClaimCreditFailureKeepsSession(t *testing.T) {
	aw := newFakeAwarder()
	aw.fail = errors.New("db down")
	m := newManager(t, aw)
	key := SessionKey{ChatID: 1, MessageID: 2}
	_, err := m.Start(key, 1)
	require.NoError(t, err)
	x, y := safeCell(t, m, key)
	_, _, err = m.Reveal(key, 1, x, y)
	require.NoError(t, err)

	_, _, err = m.Claim(context.Background(), key, 1)
	assert.Error(t, err)

	snap, err := m.get(key)
	require.NoError(t, err)
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, int64(500), snap.Reward)

	aw.fail = nil
	paid, _, err := m.Claim(context.Background(), key, 1)
	require.NoError(t, err)
	assert.Equal(t, ClaimPaid, paid.Kind)
}

func TestManager_ClaimNotOwner(t *testing.T) {
	aw := newFakeAwarder()
	m := newManager(t, aw)
	key := SessionKey{ChatID: 1, MessageID: 3}
	_, err := m.Start(key, 1)
	require.NoError(t, err)
	x, y := safeCell(t, m, key)
	_, _, err = m.Reveal(key, 1, x, y)
	require.NoError(t, err)

	paid, _, err := m.Claim(context.Background(), key, 2)
	require.NoError(t, err)
	assert.Equal(t, ClaimRejectedNotOwner, paid.Kind)
	assert.Empty(t, aw.records)
	assert.Equal(t, 1, m.Active())
}

func TestManager_ConcurrentOwnerClaimsPayOnce(t *testing.T) {
	aw := newFakeAwarder()
	m := newManager(t, aw)
	key := SessionKey{ChatID: -100, MessageID: 9}
	_, err := m.Start(key, 42)
	require.NoError(t, err)
	x, y := safeCell(t, m, key)
	_, _, err = m.Reveal(key, 42, x, y)
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	var paid, late atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, _, err := m.Claim(context.Background(), key, 42)
			switch {
			case errors.Is(err, ErrSessionNotFound):
				late.Add(1)
			case err == nil && out.Kind == ClaimPaid:
				paid.Add(1)
			case err == nil && out.Kind == ClaimRejectedEmpty:
				// Looked up before the session left the table.
				late.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), paid.Load())
	assert.Equal(t, int32(workers-1), late.Load())
	assert.Equal(t, int64(500), aw.balances[42])
	assert.Len(t, aw.records, 1)
	assert.Equal(t, 0, m.Active())
}

// Concurrent reveals by non-owners never change the session.
func TestConcurrentNonOwnerRevealsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		owner := rapid.Int64Range(1, 1000).Draw(t, "owner")
		others := rapid.SliceOfNDistinct(rapid.Int64Range(1001, 5000), 1, 16, func(v int64) int64 { return v }).Draw(t, "others")

		m, err := NewManager(DefaultConfig(), seeded(rapid.Uint64().Draw(t, "seed")), newFakeAwarder())
		if err != nil {
			t.Fatal(err)
		}
		key := SessionKey{ChatID: -1, MessageID: 1}
		before, err := m.Start(key, owner)
		if err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		var notOwner sync.Map
		for i, actor := range others {
			wg.Add(1)
			go func(i int, actor int64) {
				defer wg.Done()
				_, _, err := m.Reveal(key, actor, i%5, (i/5)%5)
				notOwner.Store(i, errors.Is(err, ErrNotOwner))
			}(i, actor)
		}
		wg.Wait()

		notOwner.Range(func(k, v any) bool {
			if !v.(bool) {
				t.Fatalf("reveal %v by non-owner was not rejected", k)
			}
			return true
		})

		after, err := m.get(key)
		if err != nil {
			t.Fatal(err)
		}
		if after.Reward != before.Reward || after.State != before.State {
			t.Fatalf("session mutated: %+v -> %+v", before, after)
		}
		s, _ := m.lookup(key)
		if s.openedCount() != 0 {
			t.Fatalf("%d cells opened by non-owners", s.openedCount())
		}
	})
}

func TestManager_Sweep(t *testing.T) {
	m := newManager(t, newFakeAwarder())

	idle := SessionKey{ChatID: 1, MessageID: 1}
	fresh := SessionKey{ChatID: 1, MessageID: 2}
	busted := SessionKey{ChatID: 1, MessageID: 3}

	_, _ = m.Start(idle, 1)
	m.now = func() time.Time { return t0.Add(time.Hour) }
	_, _ = m.Start(fresh, 1)
	_, _ = m.Start(busted, 1)

	s, _ := m.lookup(busted)
	mx, my := firstCell(t, s, true)
	out, _, err := m.Reveal(busted, 1, mx, my)
	require.NoError(t, err)
	require.Equal(t, RevealMine, out.Kind)

	removed := m.Sweep(t0.Add(90*time.Minute), time.Hour)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.Active())

	_, err = m.get(fresh)
	assert.NoError(t, err)
}
