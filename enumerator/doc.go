// Package enumerator implements a persistent, content-addressable enumerator:
// a file-backed dictionary that assigns every distinct key a stable ID.
//
// # Files
//
// A store at path consists of:
//
//   - path: the data file, serialized keys appended in insertion order
//   - path.idx: an open-addressing hash index from key hash to record address
//   - path.lock: the lock file guarding read-write opens
//
// A key's ID is the byte address of its record in the data file. Fixed-width
// keys are stored without framing; variable-width keys are prefixed with their
// length as a uvarint.
//
// # Lookups
//
// The index stores the descriptor's fast hash next to each address. Hashes may
// be lossy, so every candidate is confirmed against the stored bytes before a
// lookup succeeds.
//
// # Durability
//
// Writes are buffered in page caches and become durable on Flush or Close.
// Before the first write after a flush the index header is marked dirty on
// disk. An index found dirty, or covering a different amount of data than the
// data file holds, is rebuilt from the data file when the store is opened.
//
// A failed append is rolled back: the partial record is cut off and a failed
// index growth restores the previous table. When that is not possible the
// Enumerator fails, and every later call returns an error wrapping ErrCorrupt
// until the store is reopened.
//
// # Concurrency
//
// An Enumerator is safe for concurrent use. Lookups run in parallel; inserts
// are serialized so two callers enumerating the same new key get the same ID.
package enumerator
