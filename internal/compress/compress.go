// Package compress implements the block codecs used for snapshot streams.
package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None indicates no compression.
	None Type = 0
	// LZ4 indicates LZ4 block compression (fast).
	LZ4 Type = 1
	// ZSTD indicates ZSTD block compression (better ratio).
	ZSTD Type = 2
)

// ErrUnknownType is returned for an unsupported compression type.
var ErrUnknownType = errors.New("compress: unknown type")

// ErrSizeMismatch is returned when a block does not decode to its recorded size.
var ErrSizeMismatch = errors.New("compress: decompressed size mismatch")

// String returns the name of the compression type.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid reports whether t is a known compression type.
func (t Type) Valid() bool {
	return t <= ZSTD
}

// ZSTD encoder/decoder pools
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Compress compresses data with the given algorithm.
//
// When compression does not shrink the block below 90% of its size, data is
// returned unchanged and compressed is false.
func Compress(data []byte, t Type) (out []byte, compressed bool, err error) {
	if len(data) == 0 {
		return data, false, nil
	}

	var c []byte
	switch t {
	case None:
		return data, false, nil
	case LZ4:
		c, err = compressLZ4(data)
	case ZSTD:
		c, err = compressZSTD(data)
	default:
		return nil, false, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	if err != nil {
		return nil, false, err
	}

	if len(c) == 0 || float64(len(c)) > float64(len(data))*0.9 {
		return data, false, nil
	}
	return c, true, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return dst[:n], nil
}

func compressZSTD(data []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer zstdEncoderPool.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

// Decompress restores a block produced by Compress with compressed == true.
// rawLen is the size of the original data.
func Decompress(payload []byte, rawLen int, t Type) ([]byte, error) {
	out := make([]byte, rawLen)

	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, ErrSizeMismatch
		}
		return out, nil

	case ZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(payload, out[:0])
		if err != nil {
			return nil, err
		}
		if len(decoded) != rawLen {
			return nil, ErrSizeMismatch
		}
		return decoded, nil

	case None:
		if len(payload) != rawLen {
			return nil, ErrSizeMismatch
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}
