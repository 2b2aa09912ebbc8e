// Package hash provides the hashing utilities of the on-disk formats.
//
// # CRC32-Castagnoli (CRC32C)
//
// Index headers and snapshot blocks are checksummed with CRC32C, which is
// hardware accelerated on x86 (SSE4.2) and ARM (CRC extension). Fixed-size
// headers reserve their last four bytes for the checksum:
//
//	hash.Seal(header)          // on write
//	ok := hash.Sealed(header)  // on read
//
// # Slot mixing
//
// Key descriptors may return lossy fast hashes (for content hashes, the first
// four bytes of the digest). [Mix32] spreads such values over the slots of an
// open-addressing table so structured prefixes do not cluster.
package hash
