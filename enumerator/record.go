package enumerator

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/enumstore/internal/resource"
)

const scanBufferSize = 256 * 1024

// frame returns the on-disk record for a serialized key.
func (e *Enumerator[K]) frame(ser []byte) []byte {
	if e.width > 0 {
		return ser
	}
	rec := make([]byte, 0, binary.MaxVarintLen64+len(ser))
	rec = binary.AppendUvarint(rec, uint64(len(ser)))
	return append(rec, ser...)
}

// readRecord returns the serialized key stored at addr.
func (e *Enumerator[K]) readRecord(addr int64) ([]byte, error) {
	size := e.data.Size()
	if addr < 0 || addr >= size {
		return nil, fmt.Errorf("%w: address %d out of range", ErrDecode, addr)
	}

	if e.width > 0 {
		if addr%e.width != 0 || addr+e.width > size {
			return nil, fmt.Errorf("%w: address %d is not a record start", ErrDecode, addr)
		}
		buf := make([]byte, e.width)
		if _, err := e.data.ReadAt(buf, addr); err != nil {
			return nil, err
		}
		return buf, nil
	}

	var hdr [binary.MaxVarintLen64]byte
	n, err := e.data.ReadAt(hdr[:min(int64(len(hdr)), size-addr)], addr)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	l, k := binary.Uvarint(hdr[:n])
	if k <= 0 || l > uint64(size-addr-int64(k)) {
		return nil, fmt.Errorf("%w: bad record length at %d", ErrDecode, addr)
	}

	buf := make([]byte, l)
	if _, err := e.data.ReadAt(buf, addr+int64(k)); err != nil {
		return nil, err
	}
	return buf, nil
}

// records calls fn for every record in the first size bytes of the data file.
// ser is only valid during the call.
func (e *Enumerator[K]) records(ctx context.Context, size int64, fn func(addr int64, ser []byte) error) error {
	r := bufio.NewReaderSize(&throttledReader{
		ctx: ctx,
		r:   io.NewSectionReader(e.data, 0, size),
		rc:  e.rc,
	}, scanBufferSize)

	var buf []byte
	for addr := int64(0); addr < size; {
		if err := ctx.Err(); err != nil {
			return err
		}
		if addr > MaxAddress {
			return fmt.Errorf("%w: record address %d exceeds id space", ErrCorrupt, addr)
		}

		var n int64
		if e.width > 0 {
			buf = grow(buf, int(e.width))
			n = e.width
		} else {
			l, k, err := readUvarint(r)
			if err != nil {
				return truncated(addr, err)
			}
			if l > uint64(size-addr) {
				return fmt.Errorf("%w: record at %d claims %d bytes", ErrCorrupt, addr, l)
			}
			buf = grow(buf, int(l))
			n = int64(k) + int64(l)
		}

		if _, err := io.ReadFull(r, buf); err != nil {
			return truncated(addr, err)
		}
		if err := fn(addr, buf); err != nil {
			return err
		}
		addr += n
	}
	return nil
}

func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}

func truncated(addr int64, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated record at %d", ErrCorrupt, addr)
	}
	return err
}

// readUvarint decodes a uvarint and reports how many bytes it occupied.
func readUvarint(r io.ByteReader) (uint64, int, error) {
	var x uint64
	var s uint
	for i := 0; i < binary.MaxVarintLen64; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return 0, i, err
		}
		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				break
			}
			return x | uint64(b)<<s, i + 1, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, binary.MaxVarintLen64, fmt.Errorf("%w: uvarint overflow", ErrCorrupt)
}

// throttledReader charges every read to the IO limit of a controller.
type throttledReader struct {
	ctx context.Context
	r   io.Reader
	rc  *resource.Controller
}

func (t *throttledReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.rc.AcquireIO(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
