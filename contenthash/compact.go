package contenthash

import (
	"fmt"

	"github.com/hupe1980/enumstore/enumerator"
	"github.com/hupe1980/enumstore/keydesc"
)

// RecordSize is the width of a stored content hash.
const RecordSize = 20

// ToLogical converts a record address to a compacted ID.
// addr must be a non-negative multiple of RecordSize.
func ToLogical(addr int64) (enumerator.ID, error) {
	if addr < 0 || addr%RecordSize != 0 || addr > enumerator.MaxAddress {
		return enumerator.NullID, fmt.Errorf("%w: address %d is not a record start", keydesc.ErrDecode, addr)
	}
	return enumerator.ID(addr / RecordSize), nil
}

// ToPhysical converts a compacted ID to its record address.
func ToPhysical(id enumerator.ID) (int64, error) {
	if id < 0 || int64(id) > enumerator.MaxAddress/RecordSize {
		return 0, fmt.Errorf("%w: id %d out of range", keydesc.ErrDecode, id)
	}
	return int64(id) * RecordSize, nil
}
