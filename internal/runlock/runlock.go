// Package runlock prevents overlapping runs of the same job, either inside
// one process or across replicas sharing a Redis instance.
package runlock

import (
	"context"
	"errors"
	"sync"
)

// ErrHeld is returned by Acquire when another run holds the lock.
var ErrHeld = errors.New("lock already held")

// Locker acquires named run locks. The returned release func is safe to call
// more than once.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]bool)}
}

// Acquire takes the named lock or returns ErrHeld.
func (l *Local) Acquire(_ context.Context, name string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[name] {
		return nil, ErrHeld
	}
	l.held[name] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, nil
}
