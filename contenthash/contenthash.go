package contenthash

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"iter"
	"strconv"

	"github.com/hupe1980/enumstore/enumerator"
	"github.com/hupe1980/enumstore/keydesc"
)

// ErrWrongKeySize is returned by Wrap for enumerators of other key widths.
var ErrWrongKeySize = errors.New("contenthash: enumerator does not store 20-byte keys")

// Enumerator assigns compacted IDs to content hashes.
type Enumerator struct {
	inner *enumerator.Enumerator[[]byte]
}

// Open opens the content hash store at path, creating it if absent.
func Open(path string, opts ...enumerator.Option) (*Enumerator, error) {
	inner, err := enumerator.Open[[]byte](path, keydesc.ContentHash, opts...)
	if err != nil {
		return nil, err
	}
	return &Enumerator{inner: inner}, nil
}

// Wrap compacts the IDs of an existing enumerator of 20-byte keys.
func Wrap(inner *enumerator.Enumerator[[]byte]) (*Enumerator, error) {
	if inner.Descriptor().Size() != RecordSize {
		return nil, ErrWrongKeySize
	}
	return &Enumerator{inner: inner}, nil
}

// Inner returns the wrapped enumerator, which works on record addresses.
func (e *Enumerator) Inner() *enumerator.Enumerator[[]byte] {
	return e.inner
}

// Enumerate returns the ID of hash, inserting it if needed.
func (e *Enumerator) Enumerate(hash []byte) (enumerator.ID, error) {
	return e.DoWriteData(hash)
}

// DoWriteData stores hash through the wrapped enumerator and returns the
// compacted ID of its record.
func (e *Enumerator) DoWriteData(hash []byte) (enumerator.ID, error) {
	id, _, err := e.writeData(hash)
	return id, err
}

func (e *Enumerator) writeData(hash []byte) (enumerator.ID, bool, error) {
	addr, inserted, err := e.inner.WriteData(hash)
	if err != nil {
		return enumerator.NullID, false, err
	}
	id, err := ToLogical(int64(addr))
	return id, inserted, err
}

// TryEnumerate returns the ID of hash, or NullID if it is not stored.
func (e *Enumerator) TryEnumerate(hash []byte) (enumerator.ID, error) {
	addr, err := e.inner.TryEnumerate(hash)
	if err != nil || addr == enumerator.NullID {
		return enumerator.NullID, err
	}
	return ToLogical(int64(addr))
}

// ValueOf returns the hash with the given ID.
func (e *Enumerator) ValueOf(id enumerator.ID) ([]byte, error) {
	return e.ValueAt(id, enumerator.ProbeLogical)
}

// ValueAt returns the hash stored under id. With ProbeRaw, id is a record
// address that has already been translated, and is passed through as is.
func (e *Enumerator) ValueAt(id enumerator.ID, probe enumerator.Probe) ([]byte, error) {
	if probe == enumerator.ProbeRaw {
		return e.inner.ValueAt(id, enumerator.ProbeRaw)
	}

	addr, err := ToPhysical(id)
	if err != nil {
		return nil, err
	}
	return e.inner.ValueAt(enumerator.ID(addr), enumerator.ProbeLogical)
}

// IsKeyAtIndex reports whether the record with the given ID holds hash.
func (e *Enumerator) IsKeyAtIndex(hash []byte, id enumerator.ID) (bool, error) {
	addr, err := ToPhysical(id)
	if err != nil {
		return false, nil
	}
	return e.inner.IsKeyAtIndex(hash, enumerator.ID(addr), enumerator.ProbeRaw)
}

// LargestID returns the highest ID assigned so far, or NullID for an empty store.
func (e *Enumerator) LargestID() enumerator.ID {
	addr := e.inner.LargestID()
	if addr == enumerator.NullID {
		return enumerator.NullID
	}
	return enumerator.ID(int64(addr) / RecordSize)
}

// All iterates over the stored hashes in ID order.
func (e *Enumerator) All(ctx context.Context) iter.Seq2[enumerator.Entry[[]byte], error] {
	return func(yield func(enumerator.Entry[[]byte], error) bool) {
		for entry, err := range e.inner.All(ctx) {
			if err == nil {
				entry.ID, err = ToLogical(int64(entry.ID))
			}
			if !yield(entry, err) || err != nil {
				return
			}
		}
	}
}

func (e *Enumerator) Len() int                                              { return e.inner.Len() }
func (e *Enumerator) IsDirty() bool                                         { return e.inner.IsDirty() }
func (e *Enumerator) Flush() error                                          { return e.inner.Flush() }
func (e *Enumerator) Close() error                                          { return e.inner.Close() }
func (e *Enumerator) Verify(ctx context.Context) (enumerator.Report, error) { return e.inner.Verify(ctx) }
func (e *Enumerator) RebuildIndex(ctx context.Context) error                { return e.inner.RebuildIndex(ctx) }

// Stats returns the state of the store with the largest ID compacted.
func (e *Enumerator) Stats() enumerator.Stats {
	st := e.inner.Stats()
	st.LargestID = e.LargestID()
	return st
}

// Digest returns the content hash of data: SHA-1 over the decimal length of
// data, a zero byte and data itself.
func Digest(data []byte) []byte {
	h := sha1.New()
	h.Write([]byte(strconv.Itoa(len(data))))
	h.Write([]byte{0})
	h.Write(data)
	return h.Sum(nil)
}

// FindOrCreate enumerates the digest of data. reused is true when an equal
// content was stored before.
func (e *Enumerator) FindOrCreate(data []byte) (id enumerator.ID, reused bool, err error) {
	id, inserted, err := e.writeData(Digest(data))
	if err != nil {
		return enumerator.NullID, false, fmt.Errorf("contenthash: find or create: %w", err)
	}
	return id, !inserted, nil
}
