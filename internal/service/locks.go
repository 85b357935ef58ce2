package service

import "sync"

// UserLocks hands out one mutex per user id. Cart mutations and checkout
// share the same instance: a cart save that read its snapshot before a
// checkout committed would write the purchased lines back after the
// checkout cleared them, so both paths must queue on one lock per user.
// Cross-user locking is not needed since carts are single-owner.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *UserLocks) ForUser(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	return m
}
