package enumstore

import (
	"log/slog"

	"github.com/hupe1980/enumstore/enumerator"
	"github.com/hupe1980/enumstore/internal/resource"
	"github.com/hupe1980/enumstore/snapshot"
	"github.com/hupe1980/enumstore/storage"
)

type options struct {
	metricsCollector  MetricsCollector
	logger            *Logger
	readOnly          bool
	fileLock          bool
	verifyOnOpen      bool
	lockContext       *storage.LockContext
	pageSize          int
	cachePages        int
	initialCapacity   int
	resources         resource.Config
	compression       snapshot.Compression
	snapshotBlockSize int
}

// Option configures Open helpers, Export and Import.
type Option func(*options)

// WithMetricsCollector configures operational metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &enumstore.BasicMetricsCollector{}
//	names, _ := enumstore.OpenStrings(path, enumstore.WithMetricsCollector(metrics))
//	// ... use names ...
//	stats := metrics.GetStats()
//	fmt.Printf("Enumerates: %d, inserted: %d\n", stats.EnumerateCount, stats.EnumerateInserted)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := enumstore.NewJSONLogger(slog.LevelInfo)
//	names, _ := enumstore.OpenStrings(path, enumstore.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithReadOnly opens the store read-only. The store must have been flushed
// and closed cleanly.
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// WithoutFileLock skips the lock file that keeps other processes out.
// Only use it when access is coordinated otherwise.
func WithoutFileLock() Option {
	return func(o *options) {
		o.fileLock = false
	}
}

// WithVerifyOnOpen cross-checks the index against the data file after
// opening. Open fails with ErrCorrupt if they disagree.
func WithVerifyOnOpen() Option {
	return func(o *options) {
		o.verifyOnOpen = true
	}
}

// WithLockContext serializes the store with every other store opened with
// the same lock context.
func WithLockContext(lc *storage.LockContext) Option {
	return func(o *options) {
		o.lockContext = lc
	}
}

// WithPageSize sets the page size of the backing file caches.
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

// WithInitialCapacity sizes the index of a new store for about n keys
// before its first resize.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.initialCapacity = n
	}
}

// WithMemoryLimit caps the page cache memory of the store. Pages are evicted
// early when the limit is reached.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.resources.MemoryLimitBytes = bytes
	}
}

// WithIOLimit caps the throughput of full-file scans (index rebuild, verify,
// iteration and snapshots) in bytes per second.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.resources.IOLimitBytesPerSec = bytesPerSec
	}
}

// WithBackgroundWorkers bounds the goroutines of an index rebuild.
// Defaults to GOMAXPROCS.
func WithBackgroundWorkers(n int) Option {
	return func(o *options) {
		o.resources.MaxBackgroundWorkers = n
	}
}

// WithSnapshotCompression sets the block compression used by Export.
// Defaults to ZSTD.
func WithSnapshotCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithSnapshotBlockSize sets the raw size at which Export cuts a block.
func WithSnapshotBlockSize(n int) Option {
	return func(o *options) {
		o.snapshotBlockSize = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector:  NoopMetricsCollector{},
		logger:            NoopLogger(),
		fileLock:          true,
		pageSize:          storage.DefaultPageSize,
		cachePages:        storage.DefaultCachePages,
		initialCapacity:   enumerator.DefaultInitialCapacity,
		compression:       snapshot.ZSTD,
		snapshotBlockSize: snapshot.DefaultBlockSize,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

func (o options) controller() *resource.Controller {
	if o.resources == (resource.Config{}) {
		return nil
	}
	return resource.NewController(o.resources)
}

func (o options) enumeratorOptions() []enumerator.Option {
	opts := []enumerator.Option{
		enumerator.WithLogger(o.logger.Logger),
		enumerator.WithMetricsObserver(observer{mc: o.metricsCollector}),
		enumerator.WithLockContext(o.lockContext),
		enumerator.WithPageSize(o.pageSize),
		enumerator.WithCachePages(o.cachePages),
		enumerator.WithInitialCapacity(o.initialCapacity),
		enumerator.WithResourceController(o.controller()),
	}
	if o.readOnly {
		opts = append(opts, enumerator.WithReadOnly())
	}
	if !o.fileLock {
		opts = append(opts, enumerator.WithoutFileLock())
	}
	return opts
}

func (o options) snapshotOptions() []snapshot.Option {
	return []snapshot.Option{
		snapshot.WithCompression(o.compression),
		snapshot.WithBlockSize(o.snapshotBlockSize),
		snapshot.WithResourceController(o.controller()),
		snapshot.WithLogger(o.logger.Logger),
	}
}
