// Package lock serializes mutations of a single ticket.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrLockTimeout is returned when the context ends before the lock is granted.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Locker grants exclusive access to a key until release is called.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Entries are dropped when no goroutine
// holds or waits for them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewLocal creates a Local locker.
func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

// Acquire implements Locker.
func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				l.drop(key, e)
			})
		}, nil
	case <-ctx.Done():
		l.drop(key, e)
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}
}

func (l *Local) drop(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
