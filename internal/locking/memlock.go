package locking

import "sync"

// MemLock is a Group backed by in-memory mutexes. It only serializes callers
// inside one process. Unused mutexes are released when their last holder
// unlocks, so the map does not grow with every key ever seen.
type MemLock struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewMemLock creates a new MemLock
func NewMemLock() *MemLock {
	return &MemLock{
		locks: make(map[string]*keyLock),
	}
}

// DoWithLock runs fn while holding the mutex for key
func (m *MemLock) DoWithLock(key string, fn func() (any, error)) (any, error) {
	unlock := m.lock(key)
	defer unlock()
	return fn()
}

func (m *MemLock) lock(key string) func() {
	m.mu.Lock()
	l := m.locks[key]
	if l == nil {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on
func (m *MemLock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
