package snapshot

import (
	"log/slog"

	"github.com/hupe1980/enumstore/internal/resource"
)

// Option configures Export and Import.
type Option func(*options)

type options struct {
	compression Compression
	blockSize   int
	rc          *resource.Controller
	logger      *slog.Logger
}

// WithCompression sets the block compression used by Export. Import reads it
// from the stream.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithBlockSize sets the raw payload size at which Export cuts a block.
func WithBlockSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.blockSize = min(n, maxBlockSize)
		}
	}
}

// WithResourceController throttles stream IO through rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		compression: ZSTD,
		blockSize:   DefaultBlockSize,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
