package storage

import "sync"

// LockContext is a mutex shared by a group of storages.
// The zero value is ready to use.
type LockContext struct {
	mu sync.Mutex
}

// NewLockContext returns a new, unshared lock context.
func NewLockContext() *LockContext {
	return &LockContext{}
}

func (l *LockContext) lock()   { l.mu.Lock() }
func (l *LockContext) unlock() { l.mu.Unlock() }
