// Package lock serializes work per user key.
package lock

import (
	"context"
	"fmt"
	"sync"
)

// keyMutex is a one-slot semaphore so waiters can give up on context cancellation.
type keyMutex struct {
	ch   chan struct{}
	refs int
}

// UserLock hands out one mutex per key and forgets keys nobody holds or waits on.
type UserLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[string]*keyMutex)}
}

func (ul *UserLock) acquireRef(key string) *keyMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	km, ok := ul.locks[key]
	if !ok {
		km = &keyMutex{ch: make(chan struct{}, 1)}
		ul.locks[key] = km
	}
	km.refs++
	return km
}

func (ul *UserLock) releaseRef(key string, km *keyMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	km.refs--
	if km.refs == 0 {
		delete(ul.locks, key)
	}
}

// Lock blocks until the key is held or ctx is done.
func (ul *UserLock) Lock(ctx context.Context, key string) error {
	km := ul.acquireRef(key)
	select {
	case km.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.releaseRef(key, km)
		return fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
	}
}

// Unlock releases a key acquired with Lock or TryLock.
func (ul *UserLock) Unlock(key string) {
	ul.mu.Lock()
	km, ok := ul.locks[key]
	ul.mu.Unlock()
	if !ok {
		return
	}
	<-km.ch
	ul.releaseRef(key, km)
}

// TryLock acquires the key without blocking.
func (ul *UserLock) TryLock(key string) bool {
	km := ul.acquireRef(key)
	select {
	case km.ch <- struct{}{}:
		return true
	default:
		ul.releaseRef(key, km)
		return false
	}
}

// WithLock runs fn while holding the key.
func (ul *UserLock) WithLock(ctx context.Context, key string, fn func() error) error {
	if err := ul.Lock(ctx, key); err != nil {
		return err
	}
	defer ul.Unlock(key)
	return fn()
}

// IsLocked reports whether the key is currently held. The answer may be stale on return.
func (ul *UserLock) IsLocked(key string) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	km, ok := ul.locks[key]
	return ok && len(km.ch) == 1
}

// Len returns how many keys are tracked.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}
