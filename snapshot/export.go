package snapshot

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/enumstore/enumerator"
	"github.com/hupe1980/enumstore/internal/compress"
	"github.com/hupe1980/enumstore/internal/hash"
)

// Export writes every key of e to w in ID order and returns the number of
// records written. Keys appended while Export runs are not included.
func Export[K any](ctx context.Context, w io.Writer, e *enumerator.Enumerator[K], opts ...Option) (int, error) {
	o := applyOptions(opts)
	if !compress.Type(o.compression).Valid() {
		return 0, fmt.Errorf("snapshot: %w: %d", compress.ErrUnknownType, o.compression)
	}

	start := time.Now()
	desc := e.Descriptor()

	bw := &blockWriter{w: w, o: o}
	if err := bw.write(ctx, header{compression: o.compression, keySize: uint32(desc.Size())}.encode()); err != nil { //nolint:gosec
		return 0, err
	}

	var (
		count   uint64
		largest = enumerator.NullID
		ser     []byte
	)
	for entry, err := range e.All(ctx) {
		if err != nil {
			return int(count), err
		}

		ser, err = desc.Save(ser[:0], entry.Key)
		if err != nil {
			return int(count), err
		}
		bw.buf = binary.AppendUvarint(bw.buf, uint64(entry.ID)) //nolint:gosec
		bw.buf = binary.AppendUvarint(bw.buf, uint64(len(ser)))
		bw.buf = append(bw.buf, ser...)

		count++
		largest = entry.ID

		if len(bw.buf) >= o.blockSize {
			if err := bw.flush(ctx); err != nil {
				return int(count), err
			}
		}
	}

	if err := bw.flush(ctx); err != nil {
		return int(count), err
	}
	if err := bw.write(ctx, make([]byte, blockHeaderSize)); err != nil {
		return int(count), err
	}
	if err := bw.write(ctx, trailer{count: count, largest: largest}.encode()); err != nil {
		return int(count), err
	}

	o.logger.Info("snapshot exported",
		"path", e.Path(),
		"records", count,
		"blocks", bw.blocks,
		"bytes", bw.written,
		"compression", o.compression.String(),
		"duration", time.Since(start),
	)
	return int(count), nil
}

type blockWriter struct {
	w       io.Writer
	o       options
	buf     []byte
	blocks  int
	written int64
}

func (bw *blockWriter) write(ctx context.Context, b []byte) error {
	if err := bw.o.rc.AcquireIO(ctx, len(b)); err != nil {
		return err
	}
	n, err := bw.w.Write(b)
	bw.written += int64(n)
	if err != nil {
		return fmt.Errorf("snapshot: write: %w", err)
	}
	return nil
}

func (bw *blockWriter) flush(ctx context.Context) error {
	if len(bw.buf) == 0 {
		return nil
	}

	payload, compressed, err := compress.Compress(bw.buf, compress.Type(bw.o.compression))
	if err != nil {
		return err
	}

	hdr := make([]byte, blockHeaderSize, blockHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(hdr, uint32(len(bw.buf))) //nolint:gosec
	if compressed {
		binary.LittleEndian.PutUint32(hdr[4:], uint32(len(payload))) //nolint:gosec
	}
	binary.LittleEndian.PutUint32(hdr[8:], hash.CRC32C(bw.buf))

	if err := bw.write(ctx, append(hdr, payload...)); err != nil {
		return err
	}
	bw.blocks++
	bw.buf = bw.buf[:0]
	return nil
}
