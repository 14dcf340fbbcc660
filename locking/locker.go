// Package locking serializes work per game. A game is advanced by at most one
// caller at a time; a second caller is rejected rather than queued.
package locking

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrLocked = errors.New("lock is held by another caller")

// Locker hands out non-blocking, per-key locks. The returned release func must
// be called exactly once.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), err error)
}

// GameKey is the lock key of one game.
func GameKey(gameID int) string {
	return fmt.Sprintf("game:%d", gameID)
}

// LocalLocker locks within a single process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) TryLock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, fmt.Errorf("%w: %s", ErrLocked, key)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
