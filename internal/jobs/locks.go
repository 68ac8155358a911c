package jobs

import "sync"

// siteLocks serialises jobs per site on this node.
type siteLocks struct {
	mu    sync.Mutex
	locks map[string]*siteLock
}

type siteLock struct {
	mu   sync.Mutex
	refs int
}

func newSiteLocks() *siteLocks {
	return &siteLocks{locks: make(map[string]*siteLock)}
}

// lock blocks until uid is free and returns the matching unlock.
func (s *siteLocks) lock(uid string) func() {
	s.mu.Lock()
	l, ok := s.locks[uid]
	if !ok {
		l = &siteLock{}
		s.locks[uid] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, uid)
		}
		s.mu.Unlock()
	}
}
