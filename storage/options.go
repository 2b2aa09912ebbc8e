package storage

import "github.com/hupe1980/enumstore/internal/resource"

const (
	// DefaultPageSize is the page size used when none is given.
	DefaultPageSize = 64 * 1024
	// DefaultCachePages is the number of pages a PagedFile keeps in memory.
	DefaultCachePages = 256
)

// Option configures a storage.
type Option func(*options)

type options struct {
	pageSize   int
	cachePages int
	lc         *LockContext
	rc         *resource.Controller
}

// WithPageSize sets the page size hint. Values below 512 are raised to 512.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// WithCachePages sets how many pages are kept in memory.
func WithCachePages(n int) Option {
	return func(o *options) {
		o.cachePages = n
	}
}

// WithLockContext shares lc with other storages.
func WithLockContext(lc *LockContext) Option {
	return func(o *options) {
		o.lc = lc
	}
}

// WithResourceController charges cached pages to rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func applyOptions(opts []Option) options {
	o := options{
		pageSize:   DefaultPageSize,
		cachePages: DefaultCachePages,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pageSize < 512 {
		o.pageSize = 512
	}
	if o.cachePages < 1 {
		o.cachePages = 1
	}
	if o.lc == nil {
		o.lc = NewLockContext()
	}
	return o
}
