package storage

import (
	"errors"
	"io"
)

var (
	// ErrClosed is returned when using a closed storage.
	ErrClosed = errors.New("storage: closed")
	// ErrReadOnly is returned by mutating calls on a read-only storage.
	ErrReadOnly = errors.New("storage: read-only")
	// ErrLocked is returned when a file lock is held by someone else.
	ErrLocked = errors.New("storage: locked by another process")
	// ErrInvalidOffset is returned for negative offsets and sizes.
	ErrInvalidOffset = errors.New("storage: invalid offset")
)

// Storage is a random-access byte store with an explicit flush point.
type Storage interface {
	io.ReaderAt

	// WriteAt writes p at off, growing the storage as needed.
	WriteAt(p []byte, off int64) (int, error)
	// Append writes p at the end and returns the offset it was written at.
	Append(p []byte) (int64, error)
	// Size returns the logical length, including unflushed writes.
	Size() int64
	// Truncate changes the logical length.
	Truncate(size int64) error
	// Flush writes buffered changes to the file without syncing it.
	Flush() error
	// Sync flushes and commits the file to stable storage.
	Sync() error
	// IsDirty reports whether there are changes not yet written by Flush.
	IsDirty() bool
	// Close flushes and releases the file.
	Close() error
}

// Error records a failed file operation.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return "storage: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Path: path, Err: err}
}
