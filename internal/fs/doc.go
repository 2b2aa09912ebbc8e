// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with positional read/write, sync and stat
//   - [FileSystem]: open, stat, mkdir and truncate
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects read, write, sync and close errors
//
// # Usage
//
// Production code uses fs.Default (which is [LocalFS]):
//
//	file, err := fs.OpenStoreFile(fs.Default, path)
//
// Tests inject [FaultyFS] to simulate disk failures underneath a store:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".idx", fs.Fault{FailOnSync: true})
//
// Filesystem calls carry no context.Context: local syscalls are not
// interruptible, so a context would add overhead without cancellation.
package fs
