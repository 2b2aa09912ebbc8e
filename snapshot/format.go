package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/enumstore/enumerator"
	"github.com/hupe1980/enumstore/internal/compress"
	"github.com/hupe1980/enumstore/internal/hash"
)

const (
	magic   = "ENUMSNAP"
	version = 1

	headerSize      = 20
	blockHeaderSize = 12
	trailerSize     = 16

	// DefaultBlockSize is the raw payload size at which a block is cut.
	DefaultBlockSize = 1 << 20

	maxBlockSize = 64 << 20
)

var (
	// ErrNotEmpty is returned by Import when the target already holds keys.
	ErrNotEmpty = errors.New("snapshot: target enumerator is not empty")

	// ErrUnsupportedVersion is returned for streams of an unknown version.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
)

// Compression selects how blocks are compressed.
type Compression uint8

const (
	None Compression = Compression(compress.None)
	LZ4  Compression = Compression(compress.LZ4)
	ZSTD Compression = Compression(compress.ZSTD)
)

func (c Compression) String() string {
	return compress.Type(c).String()
}

type header struct {
	compression Compression
	keySize     uint32
}

func (h header) encode() []byte {
	b := make([]byte, headerSize)
	copy(b, magic)
	binary.LittleEndian.PutUint16(b[8:], version)
	b[10] = byte(h.compression)
	binary.LittleEndian.PutUint32(b[12:], h.keySize)
	hash.Seal(b)
	return b
}

func readHeader(r io.Reader) (header, error) {
	b := make([]byte, headerSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return header{}, corrupt("header: %v", err)
	}
	if string(b[:8]) != magic {
		return header{}, corrupt("bad magic %q", b[:8])
	}
	if !hash.Sealed(b) {
		return header{}, corrupt("header checksum mismatch")
	}
	if v := binary.LittleEndian.Uint16(b[8:]); v != version {
		return header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	h := header{
		compression: Compression(b[10]),
		keySize:     binary.LittleEndian.Uint32(b[12:]),
	}
	if !compress.Type(h.compression).Valid() {
		return header{}, corrupt("unknown compression %d", b[10])
	}
	return h, nil
}

type trailer struct {
	count   uint64
	largest enumerator.ID
}

func (t trailer) encode() []byte {
	b := make([]byte, trailerSize)
	binary.LittleEndian.PutUint64(b, t.count)
	binary.LittleEndian.PutUint32(b[8:], uint32(t.largest)) //nolint:gosec
	hash.Seal(b)
	return b
}

func decodeTrailer(b []byte) (trailer, error) {
	if !hash.Sealed(b) {
		return trailer{}, corrupt("trailer checksum mismatch")
	}
	return trailer{
		count:   binary.LittleEndian.Uint64(b),
		largest: enumerator.ID(int32(binary.LittleEndian.Uint32(b[8:]))), //nolint:gosec
	}, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: snapshot: %s", enumerator.ErrCorrupt, fmt.Sprintf(format, args...))
}
