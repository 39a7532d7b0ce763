package templating

import (
	"context"
	"sync"
)

// InitLock is the in-flight initialization handle of a variable. It is never
// persisted and is shared, not copied, when a variable is cloned.
type InitLock struct {
	once sync.Once
	done chan struct{}
}

// NewInitLock returns an unreleased lock.
func NewInitLock() *InitLock {
	return &InitLock{done: make(chan struct{})}
}

// Release marks initialization as finished. Subsequent calls are no-ops.
func (l *InitLock) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() { close(l.done) })
}

// Done returns a channel closed once the lock is released.
func (l *InitLock) Done() <-chan struct{} {
	if l == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return l.done
}

// Wait blocks until the lock is released or ctx is cancelled.
func (l *InitLock) Wait(ctx context.Context) error {
	select {
	case <-l.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
