// Package storage provides the random-access files underneath an enumerator.
//
// # Storages
//
//   - PagedFile: read-write file with an LRU page cache. Dirty pages are
//     written back on Flush, eviction or Close.
//   - MappedFile: read-only file backed by a memory mapping.
//
// # Locking
//
// Every storage operation runs under a LockContext. Storages created with the
// same LockContext serialize their file access; operations never hold the
// lock while calling into another storage, so sharing a LockContext between
// any number of storages cannot deadlock.
//
// FileLock guards a store against a second read-write open, including from
// other processes.
//
// # Errors
//
// Failures of the underlying file system are returned as *Error, which
// carries the operation and the path and unwraps to the OS error.
package storage
