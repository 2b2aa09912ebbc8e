package storage

import (
	"errors"
	"os"
)

// FileLock is an exclusive advisory lock on a file.
type FileLock struct {
	path string
	f    *os.File
}

// LockFile creates path if needed and locks it without blocking.
// It returns ErrLocked when another holder has the lock.
func LockFile(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, wrapErr("lock", path, err)
	}

	if err := lockFile(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLocked) {
			return nil, ErrLocked
		}
		return nil, wrapErr("lock", path, err)
	}

	return &FileLock{path: path, f: f}, nil
}

// Unlock releases the lock. The lock file itself is left in place.
func (l *FileLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}

	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return wrapErr("unlock", l.path, err)
}
