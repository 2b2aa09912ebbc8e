// Package resource implements the Controller for process-wide limits.
//
// The Controller governs three resources shared by every store opened with it:
//
//   - Memory: page cache bytes, tracked and optionally capped (non-blocking, fail-fast)
//   - Workers: the parallelism of index rebuilds and verification scans
//   - IO: a token bucket throttling full-file scans (rebuild, verify, snapshot)
//
// # Memory Management
//
// AcquireMemory never blocks. It returns ErrMemoryLimitExceeded when the
// limit would be exceeded; the caller decides whether to evict or fail:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64 << 20})
//	if err := rc.AcquireMemory(pageSize); err != nil {
//	    // evict a page and retry
//	}
//	defer rc.ReleaseMemory(pageSize)
//
// # IO Throttling
//
// AcquireIO blocks until the token bucket admits the requested bytes or the
// context is done. Requests larger than the bucket are split.
//
// A nil *Controller is valid and imposes no limits.
package resource
