package snapshot

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/enumstore/enumerator"
	"github.com/hupe1980/enumstore/internal/compress"
	"github.com/hupe1980/enumstore/internal/hash"
)

// Import reads a stream written by Export into the empty enumerator e and
// flushes it. Every key must receive the ID it had when exported. On error e
// keeps the keys imported so far.
func Import[K any](ctx context.Context, r io.Reader, e *enumerator.Enumerator[K], opts ...Option) (int, error) {
	o := applyOptions(opts)
	start := time.Now()

	if e.Len() != 0 {
		return 0, ErrNotEmpty
	}

	br := &blockReader{r: bufio.NewReader(r), o: o}
	hdr, err := readHeader(br.r)
	if err != nil {
		return 0, err
	}

	desc := e.Descriptor()
	if hdr.keySize != uint32(desc.Size()) { //nolint:gosec
		return 0, fmt.Errorf("%w: snapshot key size %d, enumerator key size %d",
			enumerator.ErrIncompatibleFormat, hdr.keySize, desc.Size())
	}
	br.compression = hdr.compression

	var count uint64
	for {
		block, err := br.next(ctx)
		if err != nil {
			return int(count), err
		}
		if block == nil {
			break
		}

		for len(block) > 0 {
			want, n := binary.Uvarint(block)
			if n <= 0 || want > enumerator.MaxAddress {
				return int(count), corrupt("bad id in block %d", br.blocks)
			}
			block = block[n:]

			l, n := binary.Uvarint(block)
			if n <= 0 || l > uint64(len(block)-n) {
				return int(count), corrupt("bad key length in block %d", br.blocks)
			}
			ser := block[n : n+int(l)] //nolint:gosec
			block = block[n+int(l):]   //nolint:gosec

			if size := desc.Size(); size > 0 && len(ser) != size {
				return int(count), corrupt("key of %d bytes, want %d", len(ser), size)
			}
			k, err := desc.Read(ser)
			if err != nil {
				return int(count), corrupt("key for id %d: %v", want, err)
			}

			id, inserted, err := e.WriteData(k)
			if err != nil {
				return int(count), err
			}
			if !inserted || uint64(id) != want { //nolint:gosec
				return int(count), corrupt("key for id %d was assigned id %s", want, id)
			}
			count++
		}
	}

	tb := make([]byte, trailerSize)
	if _, err := io.ReadFull(br.r, tb); err != nil {
		return int(count), corrupt("trailer: %v", err)
	}
	tr, err := decodeTrailer(tb)
	if err != nil {
		return int(count), err
	}
	if tr.count != count {
		return int(count), corrupt("trailer counts %d records, stream holds %d", tr.count, count)
	}
	if largest := e.LargestID(); tr.largest != largest {
		return int(count), corrupt("trailer largest id %s, imported %s", tr.largest, largest)
	}

	if err := e.Flush(); err != nil {
		return int(count), err
	}

	o.logger.Info("snapshot imported",
		"path", e.Path(),
		"records", count,
		"blocks", br.blocks,
		"duration", time.Since(start),
	)
	return int(count), nil
}

type blockReader struct {
	r           *bufio.Reader
	o           options
	compression Compression
	blocks      int
}

// next returns the raw payload of the next block, or nil at the end marker.
func (br *blockReader) next(ctx context.Context) ([]byte, error) {
	hdr := make([]byte, blockHeaderSize)
	if _, err := io.ReadFull(br.r, hdr); err != nil {
		return nil, corrupt("block %d header: %v", br.blocks, err)
	}
	rawLen := binary.LittleEndian.Uint32(hdr)
	compLen := binary.LittleEndian.Uint32(hdr[4:])
	sum := binary.LittleEndian.Uint32(hdr[8:])

	if rawLen == 0 {
		if compLen != 0 || sum != 0 {
			return nil, corrupt("malformed end marker")
		}
		return nil, nil
	}
	if rawLen > maxBlockSize || compLen > maxBlockSize {
		return nil, corrupt("block %d too large", br.blocks)
	}

	n := rawLen
	if compLen != 0 {
		n = compLen
	}
	if err := br.o.rc.AcquireIO(ctx, int(n)); err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(br.r, payload); err != nil {
		return nil, corrupt("block %d payload: %v", br.blocks, err)
	}

	if compLen != 0 {
		raw, err := compress.Decompress(payload, int(rawLen), compress.Type(br.compression))
		if err != nil {
			return nil, corrupt("block %d: decompress: %v", br.blocks, err)
		}
		payload = raw
	}
	if hash.CRC32C(payload) != sum {
		return nil, corrupt("block %d checksum mismatch", br.blocks)
	}

	br.blocks++
	return payload, nil
}
