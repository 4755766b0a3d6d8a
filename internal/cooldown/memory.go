package cooldown

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	at      time.Time
	expires time.Time
}

// MemoryStore keeps cooldowns for the lifetime of the process.
type MemoryStore struct {
	entries sync.Map // map[string]memoryEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the recorded time for key.
func (s *MemoryStore) Get(_ context.Context, key string) (time.Time, bool, error) {
	v, ok := s.entries.Load(key)
	if !ok {
		return time.Time{}, false, nil
	}
	return v.(memoryEntry).at, true, nil
}

// Set records t for key.
func (s *MemoryStore) Set(_ context.Context, key string, t time.Time, ttl time.Duration) error {
	s.entries.Store(key, memoryEntry{at: t, expires: t.Add(ttl)})
	return nil
}

// Prune drops entries whose window ended before now and returns how many were removed.
func (s *MemoryStore) Prune(now time.Time) int {
	removed := 0
	s.entries.Range(func(k, v any) bool {
		if !v.(memoryEntry).expires.After(now) {
			s.entries.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	n := 0
	s.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
