package service

import "sync"

// ownerLocks hands out one mutex per owner id. Entries are reference counted
// and dropped when the last holder unlocks.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[uint]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[uint]*ownerLock)}
}

// Lock blocks until ownerID is free and returns the matching unlock.
func (l *ownerLocks) Lock(ownerID uint) func() {
	l.mu.Lock()
	lk, ok := l.locks[ownerID]
	if !ok {
		lk = &ownerLock{}
		l.locks[ownerID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, ownerID)
		}
		l.mu.Unlock()
	}
}

func (l *ownerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
