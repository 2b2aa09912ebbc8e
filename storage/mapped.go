package storage

import (
	"github.com/hupe1980/enumstore/internal/mmap"
)

// MappedFile is a read-only Storage backed by a memory mapping.
type MappedFile struct {
	lc     *LockContext
	path   string
	m      *mmap.Mapping
	closed bool
}

var _ Storage = (*MappedFile)(nil)

// OpenMappedFile maps the file at path read-only.
// Only WithLockContext applies; the other options are ignored.
func OpenMappedFile(path string, opts ...Option) (*MappedFile, error) {
	o := applyOptions(opts)

	m, err := mmap.Open(path)
	if err != nil {
		return nil, wrapErr("mmap", path, err)
	}
	_ = m.Advise(mmap.AccessRandom)

	return &MappedFile{lc: o.lc, path: path, m: m}, nil
}

// Bytes returns the mapped file contents. The slice is invalid after Close.
func (f *MappedFile) Bytes() []byte {
	f.lc.lock()
	defer f.lc.unlock()

	if f.closed {
		return nil
	}
	return f.m.Bytes()
}

func (f *MappedFile) ReadAt(b []byte, off int64) (int, error) {
	f.lc.lock()
	defer f.lc.unlock()

	if f.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	return f.m.ReadAt(b, off)
}

func (f *MappedFile) WriteAt([]byte, int64) (int, error) { return 0, ErrReadOnly }
func (f *MappedFile) Append([]byte) (int64, error)       { return 0, ErrReadOnly }
func (f *MappedFile) Truncate(int64) error               { return ErrReadOnly }
func (f *MappedFile) Flush() error                       { return nil }
func (f *MappedFile) Sync() error                        { return nil }
func (f *MappedFile) IsDirty() bool                      { return false }

func (f *MappedFile) Size() int64 {
	return int64(f.m.Size())
}

// Close unmaps the file. It is idempotent.
func (f *MappedFile) Close() error {
	f.lc.lock()
	defer f.lc.unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return wrapErr("munmap", f.path, f.m.Close())
}
