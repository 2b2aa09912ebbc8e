package enumerator

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/hupe1980/enumstore/internal/hash"
	"github.com/hupe1980/enumstore/storage"
)

// Index file layout (little endian):
//
//	0   magic "ENUMIDX\x00"
//	8   version u32
//	12  status u32
//	16  capacity u32 (power of two)
//	20  count u32
//	24  dataSize u64
//	32  largest i64
//	40  keySize u32
//	44  reserved
//	60  crc32c u32 of [0,60)
//	64  slots: capacity x {hash u32, address+1 u32}
const (
	indexMagic   = "ENUMIDX\x00"
	indexVersion = 1

	headerSize = 64
	slotSize   = 8

	statusClean uint32 = 0
	statusDirty uint32 = 1

	minCapacity = 16
	maxCapacity = 1 << 31
)

// errStaleIndex marks an index that must be rebuilt from the data file.
var errStaleIndex = errors.New("stale index")

// errTornIndex marks a table that no longer matches the header after a
// failed write could not be undone.
var errTornIndex = errors.New("torn index table")

type header struct {
	status   uint32
	capacity uint32
	count    uint32
	dataSize uint64
	largest  int64
	keySize  uint32
}

func (h *header) encode() []byte {
	b := make([]byte, headerSize)
	copy(b[0:8], indexMagic)
	binary.LittleEndian.PutUint32(b[8:], indexVersion)
	binary.LittleEndian.PutUint32(b[12:], h.status)
	binary.LittleEndian.PutUint32(b[16:], h.capacity)
	binary.LittleEndian.PutUint32(b[20:], h.count)
	binary.LittleEndian.PutUint64(b[24:], h.dataSize)
	binary.LittleEndian.PutUint64(b[32:], uint64(h.largest))
	binary.LittleEndian.PutUint32(b[40:], h.keySize)
	hash.Seal(b)
	return b
}

func decodeHeader(b []byte) (header, error) {
	if len(b) < headerSize {
		return header{}, errStaleIndex
	}
	if string(b[0:8]) != indexMagic {
		return header{}, fmt.Errorf("%w: bad magic", ErrIncompatibleFormat)
	}
	if v := binary.LittleEndian.Uint32(b[8:]); v != indexVersion {
		return header{}, fmt.Errorf("%w: version %d", ErrIncompatibleFormat, v)
	}
	if !hash.Sealed(b[:headerSize]) {
		return header{}, fmt.Errorf("%w: header checksum mismatch", errStaleIndex)
	}

	return header{
		status:   binary.LittleEndian.Uint32(b[12:]),
		capacity: binary.LittleEndian.Uint32(b[16:]),
		count:    binary.LittleEndian.Uint32(b[20:]),
		dataSize: binary.LittleEndian.Uint64(b[24:]),
		largest:  int64(binary.LittleEndian.Uint64(b[32:])),
		keySize:  binary.LittleEndian.Uint32(b[40:]),
	}, nil
}

// index is an open-addressing hash table stored in a file.
// Slots hold the descriptor hash and the record address of one key; a hash
// hit is only a candidate and is confirmed by the caller.
type index struct {
	st        storage.Storage
	hdr       header
	persisted uint32 // status as last written
}

// roundCapacity returns the smallest power of two slot count >= n.
func roundCapacity(n int) uint32 {
	want := uint64(max(n, minCapacity))
	if want > maxCapacity {
		want = maxCapacity
	}
	return uint32(1) << bits.Len64(want-1)
}

// capacityFor returns a slot count that holds n entries below the load limit.
func capacityFor(n int) uint32 {
	return roundCapacity(n*4/3 + 1)
}

// createIndex initializes an empty index in st.
func createIndex(st storage.Storage, keySize uint32, capacity uint32) (*index, error) {
	ix := &index{st: st, hdr: header{largest: -1, keySize: keySize}}
	if err := ix.reset(capacity); err != nil {
		return nil, err
	}
	return ix, nil
}

// loadIndex reads the header of an existing index. errStaleIndex is returned
// when the file is unusable but may be rebuilt.
func loadIndex(st storage.Storage, keySize uint32) (*index, error) {
	buf := make([]byte, headerSize)
	if _, err := st.ReadAt(buf, 0); err != nil {
		if st.Size() < headerSize {
			return nil, errStaleIndex
		}
		return nil, err
	}

	hdr, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}
	if hdr.keySize != keySize {
		return nil, fmt.Errorf("%w: key size %d, want %d", ErrIncompatibleFormat, hdr.keySize, keySize)
	}

	ix := &index{st: st, hdr: hdr, persisted: hdr.status}
	switch {
	case hdr.status != statusClean:
		return ix, fmt.Errorf("%w: dirty marker set", errStaleIndex)
	case hdr.capacity < minCapacity || hdr.capacity&(hdr.capacity-1) != 0:
		return ix, fmt.Errorf("%w: capacity %d", errStaleIndex, hdr.capacity)
	case hdr.count > hdr.capacity:
		return ix, fmt.Errorf("%w: count %d exceeds capacity", errStaleIndex, hdr.count)
	case st.Size() != headerSize+int64(hdr.capacity)*slotSize:
		return ix, fmt.Errorf("%w: size %d", errStaleIndex, st.Size())
	}
	return ix, nil
}

// reset drops all slots and resizes the table.
func (ix *index) reset(capacity uint32) error {
	if err := ix.st.Truncate(headerSize); err != nil {
		return err
	}
	if err := ix.st.Truncate(headerSize + int64(capacity)*slotSize); err != nil {
		return err
	}
	ix.hdr.capacity = capacity
	ix.hdr.count = 0
	ix.hdr.dataSize = 0
	ix.hdr.largest = -1
	return ix.writeHeader()
}

func (ix *index) writeHeader() error {
	_, err := ix.st.WriteAt(ix.hdr.encode(), 0)
	return err
}

// markDirty persists the dirty marker before the first mutation.
func (ix *index) markDirty() error {
	if ix.persisted == statusDirty {
		return nil
	}
	ix.hdr.status = statusDirty
	if err := ix.writeHeader(); err != nil {
		return err
	}
	if err := ix.st.Sync(); err != nil {
		return err
	}
	ix.persisted = statusDirty
	return nil
}

// commit writes a clean header covering dataSize bytes of data.
func (ix *index) commit(dataSize int64) error {
	ix.hdr.status = statusClean
	ix.hdr.dataSize = uint64(dataSize)
	if err := ix.writeHeader(); err != nil {
		return err
	}
	if err := ix.st.Sync(); err != nil {
		return err
	}
	ix.persisted = statusClean
	return nil
}

func (ix *index) slotOffset(i uint32) int64 {
	return headerSize + int64(i)*slotSize
}

// slot returns the hash and address stored in slot i.
func (ix *index) slot(i uint32) (h uint32, addr int64, used bool, err error) {
	var b [slotSize]byte
	if _, err := ix.st.ReadAt(b[:], ix.slotOffset(i)); err != nil {
		return 0, 0, false, err
	}
	a := binary.LittleEndian.Uint32(b[4:])
	if a == 0 {
		return 0, 0, false, nil
	}
	return binary.LittleEndian.Uint32(b[:4]), int64(a) - 1, true, nil
}

func encodeSlot(b []byte, h uint32, addr int64) {
	binary.LittleEndian.PutUint32(b[:4], h)
	binary.LittleEndian.PutUint32(b[4:], uint32(addr+1))
}

// lookup calls match for every candidate address stored under h until match
// returns true. It returns the matching address.
func (ix *index) lookup(h uint32, match func(addr int64) (bool, error)) (int64, bool, error) {
	capacity := ix.hdr.capacity
	mask := capacity - 1

	i := hash.Mix32(h) & mask
	for n := uint32(0); n < capacity; n++ {
		sh, addr, used, err := ix.slot(i)
		if err != nil {
			return 0, false, err
		}
		if !used {
			return 0, false, nil
		}
		if sh == h {
			ok, err := match(addr)
			if err != nil {
				return 0, false, err
			}
			if ok {
				return addr, true, nil
			}
		}
		i = (i + 1) & mask
	}
	return 0, false, nil
}

// insert adds addr under h. The caller guarantees the key is not present.
func (ix *index) insert(h uint32, addr int64) error {
	if uint64(ix.hdr.count+1)*4 > uint64(ix.hdr.capacity)*3 {
		if ix.hdr.capacity >= maxCapacity {
			return ErrIDSpaceExhausted
		}
		if err := ix.grow(ix.hdr.capacity * 2); err != nil {
			return err
		}
	}

	mask := ix.hdr.capacity - 1
	i := hash.Mix32(h) & mask
	for {
		_, _, used, err := ix.slot(i)
		if err != nil {
			return err
		}
		if !used {
			break
		}
		i = (i + 1) & mask
	}

	var b [slotSize]byte
	encodeSlot(b[:], h, addr)
	if _, err := ix.st.WriteAt(b[:], ix.slotOffset(i)); err != nil {
		return err
	}
	ix.hdr.count++
	if addr > ix.hdr.largest {
		ix.hdr.largest = addr
	}
	return nil
}

// grow rehashes all slots into a table of newCap slots.
func (ix *index) grow(newCap uint32) error {
	old := make([]byte, int64(ix.hdr.capacity)*slotSize)
	if _, err := ix.st.ReadAt(old, headerSize); err != nil {
		return err
	}

	table := make([]byte, int64(newCap)*slotSize)
	mask := newCap - 1
	for off := 0; off < len(old); off += slotSize {
		s := old[off : off+slotSize]
		if binary.LittleEndian.Uint32(s[4:]) == 0 {
			continue
		}
		i := hash.Mix32(binary.LittleEndian.Uint32(s[:4])) & mask
		for binary.LittleEndian.Uint32(table[int64(i)*slotSize+4:]) != 0 {
			i = (i + 1) & mask
		}
		copy(table[int64(i)*slotSize:], s)
	}

	// A partial write leaves the leading pages in the new layout while the
	// probe mask is still the old one; put the old slots back.
	if _, err := ix.st.WriteAt(table, headerSize); err != nil {
		if _, rerr := ix.st.WriteAt(old, headerSize); rerr != nil {
			return fmt.Errorf("%w: grow to %d slots: %w", errTornIndex, newCap, errors.Join(err, rerr))
		}
		return err
	}
	ix.hdr.capacity = newCap
	return nil
}

// slots calls fn for every used slot in table order.
func (ix *index) slots(fn func(i uint32, h uint32, addr int64) error) error {
	table := make([]byte, int64(ix.hdr.capacity)*slotSize)
	if _, err := ix.st.ReadAt(table, headerSize); err != nil {
		return err
	}
	for i := uint32(0); i < ix.hdr.capacity; i++ {
		s := table[int64(i)*slotSize:]
		a := binary.LittleEndian.Uint32(s[4:])
		if a == 0 {
			continue
		}
		if err := fn(i, binary.LittleEndian.Uint32(s[:4]), int64(a)-1); err != nil {
			return err
		}
	}
	return nil
}

func (ix *index) loadFactor() float64 {
	if ix.hdr.capacity == 0 {
		return 0
	}
	return float64(ix.hdr.count) / float64(ix.hdr.capacity)
}
