// Package lock provides per-key mutual exclusion. Balance changes serialize on
// the user ID and grid sessions serialize on their session key.
package lock

import (
	"context"
	"sync"
)

type entry struct {
	mu   chan struct{} // one-slot semaphore so acquisition can honor ctx
	refs int
}

// KeyLock hands out one mutex per key and frees it once nobody holds or waits on it.
type KeyLock[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// UserLock serializes operations on a single user's balance.
type UserLock = KeyLock[int64]

// New creates an empty KeyLock.
func New[K comparable]() *KeyLock[K] {
	return &KeyLock[K]{entries: make(map[K]*entry)}
}

// NewUserLock creates a lock keyed by Telegram user ID.
func NewUserLock() *UserLock {
	return New[int64]()
}

func (l *KeyLock[K]) acquire(key K) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{mu: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *KeyLock[K]) release(key K, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Lock blocks until the key is held.
func (l *KeyLock[K]) Lock(key K) {
	e := l.acquire(key)
	e.mu <- struct{}{}
}

// Unlock releases the key. Unlocking a key that is not held is a no-op.
func (l *KeyLock[K]) Unlock(key K) {
	l.mu.Lock()
	e, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-e.mu:
		l.release(key, e)
	default:
	}
}

// TryLock acquires the key without blocking and reports success.
func (l *KeyLock[K]) TryLock(key K) bool {
	e := l.acquire(key)
	select {
	case e.mu <- struct{}{}:
		return true
	default:
		l.release(key, e)
		return false
	}
}

// LockContext waits for the key until ctx is done.
func (l *KeyLock[K]) LockContext(ctx context.Context, key K) error {
	e := l.acquire(key)
	select {
	case e.mu <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(key, e)
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// WithLock runs fn while holding the key.
func (l *KeyLock[K]) WithLock(key K, fn func() error) error {
	l.Lock(key)
	defer l.Unlock(key)
	return fn()
}

// WithLockContext runs fn while holding the key, giving up if ctx ends first.
func (l *KeyLock[K]) WithLockContext(ctx context.Context, key K, fn func() error) error {
	if err := l.LockContext(ctx, key); err != nil {
		return err
	}
	defer l.Unlock(key)
	return fn()
}

// Len returns the number of keys with holders or waiters.
func (l *KeyLock[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
