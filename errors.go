package enumstore

import (
	"github.com/hupe1980/enumstore/contenthash"
	"github.com/hupe1980/enumstore/enumerator"
	"github.com/hupe1980/enumstore/snapshot"
	"github.com/hupe1980/enumstore/storage"
)

var (
	// ErrClosed is returned when using a closed enumerator.
	ErrClosed = enumerator.ErrClosed

	// ErrReadOnly is returned by mutations on a read-only enumerator.
	ErrReadOnly = enumerator.ErrReadOnly

	// ErrCorrupt is returned when a store or a snapshot stream is inconsistent.
	ErrCorrupt = enumerator.ErrCorrupt

	// ErrIncompatibleFormat is returned when files were written for another
	// key width or format version.
	ErrIncompatibleFormat = enumerator.ErrIncompatibleFormat

	// ErrDecode is returned when an ID does not denote a stored record.
	ErrDecode = enumerator.ErrDecode

	// ErrInvalidKey is returned when a key cannot be serialized.
	ErrInvalidKey = enumerator.ErrInvalidKey

	// ErrIDSpaceExhausted is returned when the data file outgrows the ID range.
	ErrIDSpaceExhausted = enumerator.ErrIDSpaceExhausted

	// ErrLocked is returned when another process holds the store.
	ErrLocked = storage.ErrLocked

	// ErrWrongKeySize is returned when wrapping a store of keys that are not
	// content hashes.
	ErrWrongKeySize = contenthash.ErrWrongKeySize

	// ErrNotEmpty is returned when importing a snapshot into a non-empty store.
	ErrNotEmpty = snapshot.ErrNotEmpty
)
