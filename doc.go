// Package enumstore provides persistent, content-addressable enumerators for Go.
//
// An enumerator assigns each distinct key a stable integer ID and lets callers
// map IDs back to keys. Keys and the hash index are kept in two files next to
// each other and survive process restarts. IDs are never reused.
//
// # Quick Start
//
//	hashes, _ := enumstore.OpenContentHashes("./data/content.hashes")
//	defer hashes.Close()
//
//	id, reused, _ := hashes.FindOrCreate(fileContent)  // dense ids 0, 1, 2, ...
//	digest, _ := hashes.ValueOf(id)
//
// Variable-width keys use the generic enumerator, whose IDs are the byte
// addresses of the stored records:
//
//	names, _ := enumstore.OpenStrings("./data/names")
//	id, _ := names.Enumerate("src/main.go")
//	name, _ := names.ValueOf(id)
//
// # Durability Model
//
// Writes are buffered in a page cache. Flush makes them durable:
//
//	names.Enumerate("a")  // visible to readers immediately
//	names.Flush()         // durable after this
//
// The index is marked dirty on disk before the first write after a flush. If
// the process dies in between, the next Open rebuilds the index from the data
// file, so an unflushed index is never trusted.
//
// # Concurrency
//
// Enumerators are safe for concurrent use. Lookups run in parallel; inserts
// are serialized. Stores that share a lock context via WithLockContext are
// serialized together.
//
// # Portability
//
// The snapshot package exports an enumerator to a compressed stream and
// imports it into an empty one with identical IDs.
package enumstore
