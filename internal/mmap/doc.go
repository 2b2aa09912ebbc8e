// Package mmap provides read-only memory-mapped file access.
//
// # Overview
//
// Read-only enumerator opens map the data and index files instead of
// reading them through the page cache of the storage package. Lookups then
// touch the mapped bytes directly.
//
// # Usage
//
//	m, err := mmap.Open("names.dat")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	_ = m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (advice is a no-op)
//
// # Thread Safety
//
// A Mapping is safe for concurrent reads. Close is idempotent; callers must
// not touch Bytes() after Close returns.
package mmap
