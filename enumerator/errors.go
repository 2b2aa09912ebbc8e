package enumerator

import (
	"errors"

	"github.com/hupe1980/enumstore/keydesc"
	"github.com/hupe1980/enumstore/storage"
)

var (
	// ErrClosed is returned when using a closed enumerator.
	ErrClosed = errors.New("enumerator: closed")

	// ErrReadOnly is returned by mutations on a read-only enumerator.
	ErrReadOnly = storage.ErrReadOnly

	// ErrCorrupt is returned when the data file or the index is inconsistent.
	ErrCorrupt = errors.New("enumerator: corrupt store")

	// ErrIncompatibleFormat is returned when the index file was written by an
	// incompatible version or for a different key width.
	ErrIncompatibleFormat = errors.New("enumerator: incompatible index format")

	// ErrDecode is returned when an id does not denote a stored record.
	ErrDecode = keydesc.ErrDecode

	// ErrInvalidKey is returned when a key cannot be serialized.
	ErrInvalidKey = keydesc.ErrInvalidKey

	// ErrIDSpaceExhausted is returned when a record address no longer fits an ID.
	ErrIDSpaceExhausted = errors.New("enumerator: id space exhausted")
)
