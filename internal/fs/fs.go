package fs

import (
	"io"
	"os"
)

// File is an open data or index file. Stores only use positioned IO.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Sync() error
	Stat() (os.FileInfo, error)
}

// FileSystem is the set of file system calls a read-write store makes.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Stat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	Truncate(name string, size int64) error
}

// LocalFS implements FileSystem on top of package os.
type LocalFS struct{}

func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(name, flag, perm)
}

func (LocalFS) Stat(name string) (os.FileInfo, error)        { return os.Stat(name) }
func (LocalFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (LocalFS) Truncate(name string, size int64) error       { return os.Truncate(name, size) }

// Default is the local file system.
var Default FileSystem = LocalFS{}

// OpenStoreFile opens name for positioned reads and writes, creating it if
// it does not exist.
func OpenStoreFile(fsys FileSystem, name string) (File, error) {
	if fsys == nil {
		fsys = Default
	}
	return fsys.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
}
