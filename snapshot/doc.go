// Package snapshot exports an enumerator to a portable stream and imports it
// back with identical IDs.
//
// A stream starts with a header naming the key width and the block
// compression, followed by checksummed blocks of (id, key) entries in ID
// order and a trailer holding the record count:
//
//	header  [magic:8][version:2][compression:1][reserved:1][keySize:4][crc32c:4]
//	block   [rawLen:4][compLen:4][crc32c:4][payload]   compLen 0 = stored raw
//	end     [0:4][0:4][0:4]
//	trailer [count:8][largest:4][crc32c:4]
//
// Block payloads are sequences of uvarint(id) uvarint(len) key, with keys in
// their serialized form. All integers are little endian.
package snapshot
