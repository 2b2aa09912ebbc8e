package enumerator

import (
	"context"
	"fmt"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// Report is the result of Verify.
type Report struct {
	Records        int // records in the data file
	Indexed        int // used index slots
	HeaderCount    int // entry count recorded in the index header
	Missing        int // records no slot points at
	Dangling       int // slots that point at no record start
	Duplicates     int // records referenced by more than one slot
	HashMismatches int // slots whose hash differs from the record's key hash
}

// OK reports whether the index and the data file agree.
func (r Report) OK() bool {
	return r.Missing == 0 && r.Dangling == 0 && r.Duplicates == 0 &&
		r.HashMismatches == 0 && r.Indexed == r.HeaderCount
}

func (r Report) String() string {
	return fmt.Sprintf("records=%d indexed=%d header=%d missing=%d dangling=%d duplicates=%d hash_mismatches=%d",
		r.Records, r.Indexed, r.HeaderCount, r.Missing, r.Dangling, r.Duplicates, r.HashMismatches)
}

// Verify cross-checks every index slot against the data file.
// It returns an error wrapping ErrCorrupt when the report is not OK.
func (e *Enumerator[K]) Verify(ctx context.Context) (Report, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.usable(); err != nil {
		return Report{}, err
	}

	var (
		starts []int64
		hashes []uint32
	)
	err := e.records(ctx, e.data.Size(), func(addr int64, ser []byte) error {
		k, err := e.desc.Read(ser)
		if err != nil {
			return fmt.Errorf("%w: record at %d: %v", ErrCorrupt, addr, err)
		}
		starts = append(starts, addr)
		hashes = append(hashes, e.desc.Hash(k))
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Records:     len(starts),
		HeaderCount: int(e.idx.hdr.count),
	}
	seen := bitset.New(uint(len(starts)))

	err = e.idx.slots(func(_ uint32, h uint32, addr int64) error {
		rep.Indexed++

		ord, ok := slices.BinarySearch(starts, addr)
		if !ok {
			rep.Dangling++
			return nil
		}
		if seen.Test(uint(ord)) {
			rep.Duplicates++
			return nil
		}
		seen.Set(uint(ord))
		if hashes[ord] != h {
			rep.HashMismatches++
		}
		return nil
	})
	if err != nil {
		return rep, err
	}

	rep.Missing = rep.Records - int(seen.Count())

	if !rep.OK() {
		e.logger.Warn("index verification failed", "report", rep.String())
		return rep, fmt.Errorf("%w: %s", ErrCorrupt, rep)
	}
	return rep, nil
}
