// Package unitlock serializes allocation commits per unit.
//
// Capacity is checked by counting active memberships, then the membership is
// written. Holding the unit's lock across both steps means at most one
// request can take the last free slot of a unit. Two backends exist:
//   - Local: an in-process keyed lock, enough for a single instance.
//   - Redis: SET NX PX with a token-checked release, for several instances
//     sharing one database.
package unitlock

import (
	"context"
	"sync"
)

// Local is an in-process keyed lock. Waiting honours context cancellation.
// The zero value is not usable; call NewLocal.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty Local lock set.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// Lock blocks until key is free or ctx is done. The returned unlock func is
// safe to call more than once.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s := l.slots[key]
	if s == nil {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

// release drops one reference and forgets the slot when nobody holds or
// waits for it.
func (l *Local) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held reports how many holders and waiters key has. Used by tests.
func (l *Local) held(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s := l.slots[key]; s != nil {
		return s.refs
	}
	return 0
}
