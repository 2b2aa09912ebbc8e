package hash

// Mix32 is the murmur3 32-bit finalizer. It is a bijection, so distinct
// inputs stay distinct.
func Mix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
