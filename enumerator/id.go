package enumerator

import (
	"fmt"
	"math"
)

// ID identifies a stored key. It is the byte address of the key's record in
// the data file, so IDs are dense only for fixed-width keys after compaction
// by the caller.
type ID int32

// NullID is returned by lookups that find nothing. It is also the largest ID
// of an empty store.
const NullID ID = -1

// MaxAddress is the largest record address an ID can hold.
const MaxAddress = math.MaxInt32

// Valid reports whether id can denote a record.
func (id ID) Valid() bool {
	return id >= 0
}

func (id ID) String() string {
	if id == NullID {
		return "null"
	}
	return fmt.Sprintf("%d", int32(id))
}

// Probe tells reverse lookups how an ID was obtained.
type Probe uint8

const (
	// ProbeLogical marks an ID published to callers. It must be the start of
	// an indexed record.
	ProbeLogical Probe = iota

	// ProbeRaw marks a physical address supplied by a wrapping layer that has
	// already translated it. Framed stores skip the check that the address
	// is the start of an indexed record.
	ProbeRaw
)

func (p Probe) String() string {
	switch p {
	case ProbeLogical:
		return "logical"
	case ProbeRaw:
		return "raw"
	default:
		return fmt.Sprintf("Probe(%d)", uint8(p))
	}
}
