package keydesc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"unicode/utf8"
)

var (
	// ErrDecode is returned when stored bytes cannot be read back as a key.
	ErrDecode = errors.New("keydesc: malformed key bytes")
	// ErrInvalidKey is returned when a key cannot be serialized.
	ErrInvalidKey = errors.New("keydesc: invalid key")
)

// Descriptor serializes, hashes and compares keys of type K.
type Descriptor[K any] interface {
	// Save appends the serialized form of k to dst.
	Save(dst []byte, k K) ([]byte, error)
	// Read is the exact inverse of Save.
	Read(b []byte) (K, error)
	// Hash returns a fast, possibly lossy hash of k.
	Hash(k K) uint32
	// Equal reports whether a and b are the same key.
	Equal(a, b K) bool
	// Size returns the fixed serialized width, or 0 for variable width keys.
	Size() int
	// DistinctSerialized reports whether different serialized bytes always
	// mean different keys, so Equal can be skipped on a byte mismatch.
	DistinctSerialized() bool
}

// FixedBytes describes byte keys of exactly Width bytes.
// The hash is the big-endian value of the first four bytes, which is
// sufficient for uniformly distributed keys such as digests.
type FixedBytes struct {
	Width int
}

// ContentHash describes 20-byte SHA-1 content hashes.
var ContentHash = FixedBytes{Width: 20}

func (d FixedBytes) Save(dst []byte, k []byte) ([]byte, error) {
	if len(k) != d.Width {
		return dst, fmt.Errorf("%w: length %d, want %d", ErrInvalidKey, len(k), d.Width)
	}
	return append(dst, k...), nil
}

func (d FixedBytes) Read(b []byte) ([]byte, error) {
	if len(b) != d.Width {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrDecode, len(b), d.Width)
	}
	out := make([]byte, d.Width)
	copy(out, b)
	return out, nil
}

func (d FixedBytes) Hash(k []byte) uint32 {
	if len(k) >= 4 {
		return binary.BigEndian.Uint32(k)
	}
	var buf [4]byte
	copy(buf[:], k)
	return binary.BigEndian.Uint32(buf[:])
}

func (FixedBytes) Equal(a, b []byte) bool   { return string(a) == string(b) }
func (d FixedBytes) Size() int              { return d.Width }
func (FixedBytes) DistinctSerialized() bool { return true }

// Bytes describes variable width byte keys.
type Bytes struct{}

func (Bytes) Save(dst []byte, k []byte) ([]byte, error) {
	return append(dst, k...), nil
}

func (Bytes) Read(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (Bytes) Hash(k []byte) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(k)
	return h.Sum32()
}

func (Bytes) Equal(a, b []byte) bool   { return string(a) == string(b) }
func (Bytes) Size() int                { return 0 }
func (Bytes) DistinctSerialized() bool { return true }

// String describes UTF-8 string keys, such as file names.
type String struct{}

func (String) Save(dst []byte, k string) ([]byte, error) {
	if !utf8.ValidString(k) {
		return dst, fmt.Errorf("%w: invalid UTF-8", ErrInvalidKey)
	}
	return append(dst, k...), nil
}

func (String) Read(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrDecode)
	}
	return string(b), nil
}

func (String) Hash(k string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k))
	return h.Sum32()
}

func (String) Equal(a, b string) bool   { return a == b }
func (String) Size() int                { return 0 }
func (String) DistinctSerialized() bool { return true }
