// Package locking provides mutual exclusion over sets of keys.
package locking

// Group runs functions with mutual exclusion over keys
type Group interface {
	// DoWithLock runs fn while holding the lock for key
	DoWithLock(key string, fn func() (any, error)) (any, error)
}

// NoOpGroup performs no locking. Every call executes fn immediately.
type NoOpGroup struct{}

// NewNoOpGroup creates a new NoOpGroup
func NewNoOpGroup() *NoOpGroup {
	return &NoOpGroup{}
}

// DoWithLock runs fn without locking
func (n *NoOpGroup) DoWithLock(key string, fn func() (any, error)) (any, error) {
	return fn()
}
