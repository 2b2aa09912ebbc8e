package enumerator

import (
	"log/slog"

	"github.com/hupe1980/enumstore/internal/fs"
	"github.com/hupe1980/enumstore/internal/resource"
	"github.com/hupe1980/enumstore/storage"
)

const (
	// DefaultInitialCapacity is the slot count of a new index.
	DefaultInitialCapacity = 1024
)

// Option configures an Enumerator.
type Option func(*options)

type options struct {
	logger          *slog.Logger
	metrics         MetricsObserver
	lc              *storage.LockContext
	pageSize        int
	cachePages      int
	initialCapacity int
	rc              *resource.Controller
	fsys            fs.FileSystem
	readOnly        bool
	fileLock        bool
}

// WithLogger sets the logger. Defaults to a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsObserver sets the metrics observer.
func WithMetricsObserver(m MetricsObserver) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithLockContext shares a storage lock context with other stores.
// The data and index files of the enumerator always share one.
func WithLockContext(lc *storage.LockContext) Option {
	return func(o *options) {
		o.lc = lc
	}
}

// WithPageSize sets the page size hint of the backing files.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// WithCachePages sets how many pages of each backing file stay in memory.
func WithCachePages(n int) Option {
	return func(o *options) {
		o.cachePages = n
	}
}

// WithInitialCapacity sets the slot count of a newly created index.
// It is rounded up to a power of two.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.initialCapacity = n
	}
}

// WithResourceController sets the controller for page cache memory, rebuild
// workers and scan IO.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithFileSystem overrides the file system of read-write opens.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithReadOnly opens the store read-only through memory mappings.
// The index must be clean.
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// WithoutFileLock skips the exclusive lock file of read-write opens.
func WithoutFileLock() Option {
	return func(o *options) {
		o.fileLock = false
	}
}

func applyOptions(opts []Option) options {
	o := options{
		logger:          slog.New(slog.DiscardHandler),
		metrics:         NoopMetricsObserver{},
		pageSize:        storage.DefaultPageSize,
		cachePages:      storage.DefaultCachePages,
		initialCapacity: DefaultInitialCapacity,
		fsys:            fs.Default,
		fileLock:        true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lc == nil {
		o.lc = storage.NewLockContext()
	}
	return o
}

func (o options) storageOptions() []storage.Option {
	return []storage.Option{
		storage.WithPageSize(o.pageSize),
		storage.WithCachePages(o.cachePages),
		storage.WithLockContext(o.lc),
		storage.WithResourceController(o.rc),
	}
}
