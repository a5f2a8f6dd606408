package engine

import "sync"

// #region user-locks
// userLocks serializes read-modify-write cycles per user so that two
// in-flight messages from the same user cannot drop each other's state
// deltas. Distinct users never contend here. Entries are never reclaimed;
// one mutex per user seen during the process lifetime is cheap.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (u *userLocks) get(userID string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		u.locks[userID] = l
	}
	return l
}

// #endregion user-locks
