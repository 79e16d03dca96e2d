package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a concert lock could not be acquired
// within the configured wait.
var ErrLockTimeout = errors.New("timed out waiting for concert lock")

// Locker provides one exclusive lock per concert.  Lock blocks until the
// lock is held or ctx is done; the returned function releases it and is
// safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, concertID uint64) (unlock func(), err error)
}

// LocalLocker serialises concerts within a single process.  Each concert
// gets a one-slot channel so that waiting honours context cancellation.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[uint64]chan struct{}
	wait  time.Duration
}

// NewLocalLocker returns an empty LocalLocker.  Lock gives up with
// ErrLockTimeout after wait; a wait of zero or less waits on ctx alone.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{slots: make(map[uint64]chan struct{}), wait: wait}
}

func (l *LocalLocker) slot(concertID uint64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[concertID]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[concertID] = s
	}
	return s
}

// Lock acquires the concert's slot.
func (l *LocalLocker) Lock(ctx context.Context, concertID uint64) (func(), error) {
	s := l.slot(concertID)
	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case s <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, fmt.Errorf("%w: concert %d", ErrLockTimeout, concertID)
	}
	var once sync.Once
	return func() { once.Do(func() { <-s }) }, nil
}
