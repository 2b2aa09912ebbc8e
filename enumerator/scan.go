package enumerator

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// Entry is a stored key together with its ID.
type Entry[K any] struct {
	ID  ID
	Key K
}

var errStopScan = errors.New("scan stopped")

// All iterates over the stored keys in ID order.
//
// The iteration covers the keys stored when it starts and holds no lock
// while yielding, so the loop body may call back into the enumerator.
// An error ends the iteration after it has been yielded.
func (e *Enumerator[K]) All(ctx context.Context) iter.Seq2[Entry[K], error] {
	return func(yield func(Entry[K], error) bool) {
		e.mu.RLock()
		if err := e.usable(); err != nil {
			e.mu.RUnlock()
			yield(Entry[K]{}, err)
			return
		}
		size := e.data.Size()
		e.mu.RUnlock()

		err := e.records(ctx, size, func(addr int64, ser []byte) error {
			k, err := e.desc.Read(ser)
			if err != nil {
				return fmt.Errorf("%w: record at %d: %v", ErrCorrupt, addr, err)
			}
			if !yield(Entry[K]{ID: ID(addr), Key: k}, nil) {
				return errStopScan
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopScan) {
			yield(Entry[K]{}, err)
		}
	}
}
