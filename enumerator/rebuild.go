package enumerator

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// scanChunkBytes is the amount of data one rebuild worker reads at a time.
const scanChunkBytes = 1 << 20

type slotEntry struct {
	hash uint32
	addr int64
}

// RebuildIndex discards the index and recreates it from the data file.
func (e *Enumerator[K]) RebuildIndex(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.usable(); err != nil {
		return err
	}
	if e.readOnly {
		return ErrReadOnly
	}
	return e.rebuild(ctx, "requested")
}

// rebuild must be called with e.mu held for writing, or during open.
func (e *Enumerator[K]) rebuild(ctx context.Context, reason string) (err error) {
	start := time.Now()
	records := 0
	defer func() {
		e.metrics.OnIndexRebuild(time.Since(start), records, err)
	}()

	e.logger.Warn("rebuilding index from data file", "reason", reason)

	size := e.data.Size()
	var entries []slotEntry
	if e.width > 0 {
		entries, err = e.scanFixed(ctx, size)
	} else {
		entries, err = e.scanFramed(ctx, size)
	}
	if err != nil {
		return err
	}

	keySize, err := e.keySize()
	if err != nil {
		return err
	}
	// From here on the old table is gone; a partial rebuild must not serve.
	ix, err := createIndex(e.idx.st, keySize, capacityFor(len(entries)))
	if err != nil {
		return e.fail(err)
	}
	e.idx = ix
	if err := ix.markDirty(); err != nil {
		return e.fail(err)
	}

	skipped := 0
	for _, en := range entries {
		if err := ctx.Err(); err != nil {
			return e.fail(err)
		}
		dup, err := e.indexed(en)
		if err != nil {
			return e.fail(err)
		}
		if dup {
			skipped++
			continue
		}
		if err := ix.insert(en.hash, en.addr); err != nil {
			return e.fail(err)
		}
	}
	records = int(ix.hdr.count)

	if skipped > 0 {
		e.logger.Warn("skipped duplicate records during rebuild", "duplicates", skipped)
	}

	if err := ix.commit(size); err != nil {
		return err
	}

	e.logger.Info("rebuilt index",
		"records", records,
		"duration", time.Since(start),
	)
	return nil
}

// indexed reports whether the key stored at en.addr is already in the index.
func (e *Enumerator[K]) indexed(en slotEntry) (bool, error) {
	var ser []byte
	_, found, err := e.idx.lookup(en.hash, func(addr int64) (bool, error) {
		if ser == nil {
			var err error
			if ser, err = e.readRecord(en.addr); err != nil {
				return false, err
			}
		}
		other, err := e.readRecord(addr)
		if err != nil {
			return false, err
		}
		if bytes.Equal(ser, other) {
			return true, nil
		}
		if e.desc.DistinctSerialized() {
			return false, nil
		}
		a, err := e.desc.Read(ser)
		if err != nil {
			return false, err
		}
		b, err := e.desc.Read(other)
		if err != nil {
			return false, err
		}
		return e.desc.Equal(a, b), nil
	})
	return found, err
}

// scanFixed hashes fixed-width records in parallel chunks.
func (e *Enumerator[K]) scanFixed(ctx context.Context, size int64) ([]slotEntry, error) {
	n := size / e.width
	perChunk := max(1, scanChunkBytes/e.width)
	entries := make([]slotEntry, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.rc.Workers())

	for first := int64(0); first < n; first += perChunk {
		last := min(n, first+perChunk)
		g.Go(func() error {
			buf := make([]byte, (last-first)*e.width)
			if err := e.rc.AcquireIO(ctx, len(buf)); err != nil {
				return err
			}
			if _, err := e.data.ReadAt(buf, first*e.width); err != nil {
				return err
			}

			for r := first; r < last; r++ {
				off := (r - first) * e.width
				k, err := e.desc.Read(buf[off : off+e.width])
				if err != nil {
					return fmt.Errorf("%w: record at %d: %v", ErrCorrupt, r*e.width, err)
				}
				entries[r] = slotEntry{hash: e.desc.Hash(k), addr: r * e.width}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// scanFramed walks length-prefixed records sequentially.
func (e *Enumerator[K]) scanFramed(ctx context.Context, size int64) ([]slotEntry, error) {
	var entries []slotEntry
	err := e.records(ctx, size, func(addr int64, ser []byte) error {
		k, err := e.desc.Read(ser)
		if err != nil {
			return fmt.Errorf("%w: record at %d: %v", ErrCorrupt, addr, err)
		}
		entries = append(entries, slotEntry{hash: e.desc.Hash(k), addr: addr})
		return nil
	})
	return entries, err
}
