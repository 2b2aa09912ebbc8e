// Package keydesc defines how keys are serialized, hashed and compared.
//
// A Descriptor is the only knowledge an enumerator has about its keys. The
// hash may be lossy: the enumerator always confirms a hash hit with Equal
// (or a byte comparison of the serialized forms).
//
// Fixed-width descriptors (Size() > 0) produce records without framing, so
// record addresses are multiples of the width. ContentHash is the 20-byte
// instance used for SHA-1 content digests.
package keydesc
