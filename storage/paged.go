package storage

import (
	"container/list"
	"errors"
	"io"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/enumstore/internal/conv"
	"github.com/hupe1980/enumstore/internal/fs"
	"github.com/hupe1980/enumstore/internal/resource"
)

type page struct {
	idx  uint32
	data []byte
}

// PagedFile is a read-write Storage with an LRU page cache.
type PagedFile struct {
	lc       *LockContext
	fsys     fs.FileSystem
	path     string
	f        fs.File
	rc       *resource.Controller
	pageSize int64
	maxPages int

	pages map[uint32]*list.Element
	lru   *list.List // front is most recently used
	dirty *roaring.Bitmap

	size     int64 // logical size
	fileSize int64 // bytes on disk
	closed   bool

	hits   atomic.Int64
	misses atomic.Int64
}

var _ Storage = (*PagedFile)(nil)

// OpenPagedFile opens or creates the file at path.
func OpenPagedFile(fsys fs.FileSystem, path string, opts ...Option) (*PagedFile, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	o := applyOptions(opts)

	f, err := fs.OpenStoreFile(fsys, path)
	if err != nil {
		return nil, wrapErr("open", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, wrapErr("stat", path, err)
	}

	return &PagedFile{
		lc:       o.lc,
		fsys:     fsys,
		path:     path,
		f:        f,
		rc:       o.rc,
		pageSize: int64(o.pageSize),
		maxPages: o.cachePages,
		pages:    make(map[uint32]*list.Element),
		lru:      list.New(),
		dirty:    roaring.New(),
		size:     fi.Size(),
		fileSize: fi.Size(),
	}, nil
}

// Path returns the file path.
func (p *PagedFile) Path() string { return p.path }

// ReadAt implements io.ReaderAt.
func (p *PagedFile) ReadAt(b []byte, off int64) (int, error) {
	p.lc.lock()
	defer p.lc.unlock()

	if p.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= p.size {
		return 0, io.EOF
	}

	want := len(b)
	if rem := p.size - off; int64(want) > rem {
		want = int(rem)
	}

	n := 0
	for n < want {
		pos := off + int64(n)
		pg, err := p.page(pos)
		if err != nil {
			return n, err
		}
		n += copy(b[n:want], pg.data[pos%p.pageSize:])
	}

	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes b at off.
func (p *PagedFile) WriteAt(b []byte, off int64) (int, error) {
	p.lc.lock()
	defer p.lc.unlock()

	return p.writeAt(b, off)
}

// Append writes b at the end of the file.
func (p *PagedFile) Append(b []byte) (int64, error) {
	p.lc.lock()
	defer p.lc.unlock()

	off := p.size
	if _, err := p.writeAt(b, off); err != nil {
		return 0, err
	}
	return off, nil
}

func (p *PagedFile) writeAt(b []byte, off int64) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}

	n := 0
	for n < len(b) {
		pos := off + int64(n)
		pg, err := p.page(pos)
		if err != nil {
			return n, err
		}
		n += copy(pg.data[pos%p.pageSize:], b[n:])
		p.dirty.Add(pg.idx)
	}

	if end := off + int64(n); end > p.size {
		p.size = end
	}
	return n, nil
}

// Size returns the logical size.
func (p *PagedFile) Size() int64 {
	p.lc.lock()
	defer p.lc.unlock()

	return p.size
}

// Truncate changes the logical size. Shrinking is applied to the file at once.
func (p *PagedFile) Truncate(size int64) error {
	p.lc.lock()
	defer p.lc.unlock()

	if p.closed {
		return ErrClosed
	}
	if size < 0 {
		return ErrInvalidOffset
	}
	if size >= p.size {
		p.size = size
		return nil
	}

	// Drop cached pages past the new end and zero the tail of the last one.
	for idx, e := range p.pages {
		start := int64(idx) * p.pageSize
		pg := e.Value.(*page)
		switch {
		case start >= size:
			p.drop(e)
		case start+p.pageSize > size:
			clear(pg.data[size-start:])
		}
	}

	if p.fileSize > size {
		if err := p.fsys.Truncate(p.path, size); err != nil {
			return wrapErr("truncate", p.path, err)
		}
		p.fileSize = size
	}
	p.size = size
	return nil
}

// Flush writes dirty pages in page order.
func (p *PagedFile) Flush() error {
	p.lc.lock()
	defer p.lc.unlock()

	if p.closed {
		return ErrClosed
	}
	return p.flush()
}

func (p *PagedFile) flush() error {
	it := p.dirty.Iterator()
	for it.HasNext() {
		e, ok := p.pages[it.Next()]
		if !ok {
			continue
		}
		if err := p.writePage(e.Value.(*page)); err != nil {
			return err
		}
	}
	p.dirty.Clear()

	// Extend the file for a size set by Truncate without writes.
	if p.fileSize < p.size {
		if err := p.fsys.Truncate(p.path, p.size); err != nil {
			return wrapErr("truncate", p.path, err)
		}
		p.fileSize = p.size
	}
	return nil
}

// Sync flushes and fsyncs the file.
func (p *PagedFile) Sync() error {
	p.lc.lock()
	defer p.lc.unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.flush(); err != nil {
		return err
	}
	return wrapErr("sync", p.path, p.f.Sync())
}

// IsDirty reports whether Flush has work to do.
func (p *PagedFile) IsDirty() bool {
	p.lc.lock()
	defer p.lc.unlock()

	return !p.dirty.IsEmpty() || p.fileSize != p.size
}

// Close flushes and closes the file. It is idempotent.
func (p *PagedFile) Close() error {
	p.lc.lock()
	defer p.lc.unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.flush()
	for _, e := range p.pages {
		p.drop(e)
	}
	if cerr := p.f.Close(); cerr != nil && err == nil {
		err = wrapErr("close", p.path, cerr)
	}
	return err
}

// CacheStats returns page cache hits and misses.
func (p *PagedFile) CacheStats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

// page returns the cached page containing pos, loading it if needed.
func (p *PagedFile) page(pos int64) (*page, error) {
	idx, err := conv.Int64ToUint32(pos / p.pageSize)
	if err != nil {
		return nil, wrapErr("page", p.path, err)
	}

	if e, ok := p.pages[idx]; ok {
		p.hits.Add(1)
		p.lru.MoveToFront(e)
		return e.Value.(*page), nil
	}
	p.misses.Add(1)

	if err := p.reserve(); err != nil {
		return nil, err
	}

	pg := &page{idx: idx, data: make([]byte, p.pageSize)}
	start := int64(idx) * p.pageSize
	if start < p.fileSize {
		n := min(p.pageSize, p.fileSize-start)
		if _, err := p.f.ReadAt(pg.data[:n], start); err != nil && !errors.Is(err, io.EOF) {
			p.rc.ReleaseMemory(p.pageSize)
			return nil, wrapErr("read", p.path, err)
		}
	}

	p.pages[idx] = p.lru.PushFront(pg)
	return pg, nil
}

// reserve makes room for one more page, evicting from the LRU tail.
func (p *PagedFile) reserve() error {
	for len(p.pages) >= p.maxPages {
		if err := p.evict(); err != nil {
			return err
		}
	}

	for {
		err := p.rc.AcquireMemory(p.pageSize)
		if err == nil {
			return nil
		}
		if p.lru.Len() == 0 {
			return wrapErr("cache", p.path, err)
		}
		if err := p.evict(); err != nil {
			return err
		}
	}
}

func (p *PagedFile) evict() error {
	e := p.lru.Back()
	if e == nil {
		return nil
	}

	pg := e.Value.(*page)
	if p.dirty.Contains(pg.idx) {
		if err := p.writePage(pg); err != nil {
			return err
		}
		p.dirty.Remove(pg.idx)
	}
	p.drop(e)
	return nil
}

func (p *PagedFile) drop(e *list.Element) {
	pg := e.Value.(*page)
	p.lru.Remove(e)
	delete(p.pages, pg.idx)
	p.dirty.Remove(pg.idx)
	p.rc.ReleaseMemory(p.pageSize)
}

func (p *PagedFile) writePage(pg *page) error {
	start := int64(pg.idx) * p.pageSize
	n := min(p.pageSize, p.size-start)
	if n <= 0 {
		return nil
	}

	if _, err := p.f.WriteAt(pg.data[:n], start); err != nil {
		return wrapErr("write", p.path, err)
	}
	if end := start + n; end > p.fileSize {
		p.fileSize = end
	}
	return nil
}
