package enumerator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/hupe1980/enumstore/internal/conv"
	"github.com/hupe1980/enumstore/internal/resource"
	"github.com/hupe1980/enumstore/keydesc"
	"github.com/hupe1980/enumstore/storage"
)

// Enumerator maps keys of type K to stable IDs and back.
type Enumerator[K any] struct {
	mu sync.RWMutex

	desc  keydesc.Descriptor[K]
	path  string
	width int64 // fixed record width, 0 for framed records

	data  storage.Storage
	idx   *index
	flock *storage.FileLock

	rc       *resource.Controller
	logger   *slog.Logger
	metrics  MetricsObserver
	readOnly bool
	closed   bool

	// failed is set once a write left the files out of step with the index.
	// It is cleared only by reopening, which rebuilds the dirty index.
	failed error
}

// Stats describes the state of an enumerator.
type Stats struct {
	Records       int
	DataBytes     int64
	IndexCapacity int
	LoadFactor    float64
	LargestID     ID
	Dirty         bool
	ReadOnly      bool
}

// Open opens the store at path, creating it if absent.
func Open[K any](path string, desc keydesc.Descriptor[K], opts ...Option) (*Enumerator[K], error) {
	o := applyOptions(opts)

	width := int64(desc.Size())
	if width < 0 {
		return nil, fmt.Errorf("enumerator: negative key size %d", width)
	}

	e := &Enumerator[K]{
		desc:     desc,
		path:     path,
		width:    width,
		rc:       o.rc,
		logger:   o.logger.With("path", path),
		metrics:  o.metrics,
		readOnly: o.readOnly,
	}

	var err error
	if o.readOnly {
		err = e.openReadOnly(o)
	} else {
		err = e.openReadWrite(o)
	}
	if err != nil {
		e.release()
		return nil, err
	}

	e.logger.Debug("opened enumerator",
		"records", e.idx.hdr.count,
		"data_bytes", e.data.Size(),
		"read_only", e.readOnly,
	)
	return e, nil
}

func (e *Enumerator[K]) keySize() (uint32, error) {
	return conv.IntToUint32(e.desc.Size())
}

func (e *Enumerator[K]) checkDataSize() error {
	if e.width > 0 && e.data.Size()%e.width != 0 {
		return fmt.Errorf("%w: data size %d is not a multiple of the record size %d",
			ErrCorrupt, e.data.Size(), e.width)
	}
	return nil
}

func (e *Enumerator[K]) openReadWrite(o options) error {
	if err := o.fsys.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return &storage.Error{Op: "mkdir", Path: filepath.Dir(e.path), Err: err}
	}

	if o.fileLock {
		l, err := storage.LockFile(e.path + ".lock")
		if err != nil {
			return err
		}
		e.flock = l
	}

	data, err := storage.OpenPagedFile(o.fsys, e.path, o.storageOptions()...)
	if err != nil {
		return err
	}
	e.data = data

	if err := e.checkDataSize(); err != nil {
		return err
	}

	keySize, err := e.keySize()
	if err != nil {
		return err
	}

	idxSt, err := storage.OpenPagedFile(o.fsys, e.path+".idx", o.storageOptions()...)
	if err != nil {
		return err
	}
	e.idx = &index{st: idxSt}

	if idxSt.Size() == 0 && data.Size() == 0 {
		ix, err := createIndex(idxSt, keySize, roundCapacity(o.initialCapacity))
		if err != nil {
			return err
		}
		e.idx = ix
		return ix.commit(0)
	}

	ix, err := loadIndex(idxSt, keySize)
	switch {
	case errors.Is(err, errStaleIndex):
		return e.rebuild(context.Background(), err.Error())
	case err != nil:
		return err
	}
	e.idx = ix

	if got := int64(ix.hdr.dataSize); got != data.Size() {
		return e.rebuild(context.Background(),
			fmt.Sprintf("index covers %d data bytes, file has %d", got, data.Size()))
	}
	return nil
}

func (e *Enumerator[K]) openReadOnly(o options) error {
	data, err := storage.OpenMappedFile(e.path, storage.WithLockContext(o.lc))
	if err != nil {
		return err
	}
	e.data = data

	if err := e.checkDataSize(); err != nil {
		return err
	}

	keySize, err := e.keySize()
	if err != nil {
		return err
	}

	idxSt, err := storage.OpenMappedFile(e.path+".idx", storage.WithLockContext(o.lc))
	if err != nil {
		return err
	}
	e.idx = &index{st: idxSt}

	ix, err := loadIndex(idxSt, keySize)
	if errors.Is(err, errStaleIndex) {
		return fmt.Errorf("%w: index needs a rebuild by a read-write open: %v", ErrCorrupt, err)
	}
	if err != nil {
		return err
	}
	e.idx = ix

	if got := int64(ix.hdr.dataSize); got != data.Size() {
		return fmt.Errorf("%w: index covers %d data bytes, file has %d", ErrCorrupt, got, data.Size())
	}
	return nil
}

// release closes whatever a failed open left behind.
func (e *Enumerator[K]) release() {
	if e.idx != nil && e.idx.st != nil {
		_ = e.idx.st.Close()
	}
	if e.data != nil {
		_ = e.data.Close()
	}
	_ = e.flock.Unlock()
}

// Path returns the data file path.
func (e *Enumerator[K]) Path() string {
	return e.path
}

// Descriptor returns the key descriptor.
func (e *Enumerator[K]) Descriptor() keydesc.Descriptor[K] {
	return e.desc
}

// Enumerate returns the ID of k, inserting k if it is not stored yet.
func (e *Enumerator[K]) Enumerate(k K) (ID, error) {
	id, _, err := e.WriteData(k)
	return id, err
}

// WriteData is Enumerate reporting whether a new record was appended.
func (e *Enumerator[K]) WriteData(k K) (id ID, inserted bool, err error) {
	start := time.Now()
	defer func() {
		e.metrics.OnEnumerate(time.Since(start), inserted, err)
	}()

	ser, err := e.desc.Save(nil, k)
	if err != nil {
		return NullID, false, err
	}
	h := e.desc.Hash(k)

	e.mu.RLock()
	addr, found, err := e.find(k, ser, h)
	e.mu.RUnlock()
	if err != nil {
		return NullID, false, err
	}
	if found {
		return ID(addr), false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Another writer may have inserted k in between.
	addr, found, err = e.find(k, ser, h)
	if err != nil {
		return NullID, false, err
	}
	if found {
		return ID(addr), false, nil
	}

	addr, err = e.appendRecord(ser, h)
	if err != nil {
		return NullID, false, err
	}
	return ID(addr), true, nil
}

// TryEnumerate returns the ID of k, or NullID if k is not stored.
// It never modifies the store.
func (e *Enumerator[K]) TryEnumerate(k K) (id ID, err error) {
	start := time.Now()
	defer func() {
		e.metrics.OnLookup(time.Since(start), id != NullID, err)
	}()

	ser, err := e.desc.Save(nil, k)
	if err != nil {
		return NullID, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	addr, found, err := e.find(k, ser, e.desc.Hash(k))
	if err != nil || !found {
		return NullID, err
	}
	return ID(addr), nil
}

// ValueOf returns the key with the given ID. An ID that was never assigned
// yields an error wrapping ErrDecode.
func (e *Enumerator[K]) ValueOf(id ID) (K, error) {
	return e.ValueAt(id, ProbeLogical)
}

// ValueAt is ValueOf for IDs obtained as described by probe.
func (e *Enumerator[K]) ValueAt(id ID, probe Probe) (k K, err error) {
	start := time.Now()
	defer func() {
		e.metrics.OnValueOf(time.Since(start), err)
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.usable(); err != nil {
		return k, err
	}

	ser, err := e.readRecord(int64(id))
	if err != nil {
		return k, err
	}
	v, err := e.desc.Read(ser)
	if err != nil {
		return k, err
	}

	// A framed store can hold bytes that parse as a record at any offset.
	if e.width == 0 && probe == ProbeLogical {
		addr, found, err := e.find(v, ser, e.desc.Hash(v))
		if err != nil {
			return k, err
		}
		if !found || addr != int64(id) {
			return k, fmt.Errorf("%w: id %d is not a record start", ErrDecode, id)
		}
	}
	return v, nil
}

// IsKeyAtIndex reports whether the record with the given ID holds k.
// IDs that denote no record yield false.
func (e *Enumerator[K]) IsKeyAtIndex(k K, id ID, probe Probe) (bool, error) {
	ser, err := e.desc.Save(nil, k)
	if err != nil {
		return false, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.usable(); err != nil {
		return false, err
	}

	if e.width == 0 && probe == ProbeLogical {
		addr, found, err := e.find(k, ser, e.desc.Hash(k))
		return found && addr == int64(id), err
	}

	rec, err := e.readRecord(int64(id))
	if errors.Is(err, ErrDecode) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.sameKey(k, ser, rec)
}

// LargestID returns the highest ID assigned so far, or NullID for an empty store.
func (e *Enumerator[K]) LargestID() ID {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.idx.hdr.largest < 0 {
		return NullID
	}
	return ID(e.idx.hdr.largest)
}

// Len returns the number of stored keys.
func (e *Enumerator[K]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return int(e.idx.hdr.count)
}

// IsDirty reports whether there are changes that are not durable yet.
func (e *Enumerator[K]) IsDirty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.isDirty()
}

func (e *Enumerator[K]) isDirty() bool {
	if e.closed || e.readOnly {
		return false
	}
	return e.idx.persisted == statusDirty || e.data.IsDirty() || e.idx.st.IsDirty()
}

// Stats returns a snapshot of the enumerator state.
func (e *Enumerator[K]) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	largest := NullID
	if e.idx.hdr.largest >= 0 {
		largest = ID(e.idx.hdr.largest)
	}
	return Stats{
		Records:       int(e.idx.hdr.count),
		DataBytes:     e.data.Size(),
		IndexCapacity: int(e.idx.hdr.capacity),
		LoadFactor:    e.idx.loadFactor(),
		LargestID:     largest,
		Dirty:         e.isDirty(),
		ReadOnly:      e.readOnly,
	}
}

// Flush makes all enumerated keys durable. The data file is synced before
// the index is marked clean.
func (e *Enumerator[K]) Flush() (err error) {
	start := time.Now()
	defer func() {
		e.metrics.OnFlush(time.Since(start), err)
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.usable(); err != nil {
		return err
	}
	return e.flush()
}

func (e *Enumerator[K]) flush() error {
	if !e.isDirty() {
		return nil
	}
	if err := e.data.Sync(); err != nil {
		return err
	}
	if err := e.idx.commit(e.data.Size()); err != nil {
		return err
	}
	e.logger.Debug("flushed enumerator", "records", e.idx.hdr.count, "data_bytes", e.data.Size())
	return nil
}

// Close flushes and closes the store. It is idempotent.
//
// A failed enumerator is closed without committing the index, so the next
// open rebuilds it from the data file.
func (e *Enumerator[K]) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	var errs []error
	if !e.readOnly && e.failed == nil {
		errs = append(errs, e.flush())
	}
	e.closed = true

	errs = append(errs, e.data.Close(), e.idx.st.Close(), e.flock.Unlock())
	if err := errors.Join(errs...); err != nil {
		e.logger.Error("close failed", "error", err)
		return err
	}
	return nil
}

// usable returns the error every call reports once e is closed or failed.
// It must be called with e.mu held.
func (e *Enumerator[K]) usable() error {
	if e.closed {
		return ErrClosed
	}
	return e.failed
}

// fail moves e into the failed state. It must be called with e.mu held for
// writing.
func (e *Enumerator[K]) fail(cause error) error {
	e.failed = fmt.Errorf("%w: reopen required after a failed write: %w", ErrCorrupt, cause)
	e.logger.Error("enumerator failed", "error", cause)
	return e.failed
}

// find looks k up in the index. It must be called with e.mu held.
func (e *Enumerator[K]) find(k K, ser []byte, h uint32) (int64, bool, error) {
	if err := e.usable(); err != nil {
		return 0, false, err
	}

	return e.idx.lookup(h, func(addr int64) (bool, error) {
		rec, err := e.readRecord(addr)
		if errors.Is(err, ErrDecode) {
			return false, fmt.Errorf("%w: index slot points at %d: %v", ErrCorrupt, addr, err)
		}
		if err != nil {
			return false, err
		}
		return e.sameKey(k, ser, rec)
	})
}

// sameKey reports whether the stored record rec holds k.
func (e *Enumerator[K]) sameKey(k K, ser, rec []byte) (bool, error) {
	if bytes.Equal(rec, ser) {
		return true, nil
	}
	if e.desc.DistinctSerialized() {
		return false, nil
	}
	other, err := e.desc.Read(rec)
	if err != nil {
		return false, err
	}
	return e.desc.Equal(other, k), nil
}

// appendRecord stores a new key. It must be called with e.mu held for writing.
func (e *Enumerator[K]) appendRecord(ser []byte, h uint32) (int64, error) {
	if e.readOnly {
		return 0, ErrReadOnly
	}

	addr := e.data.Size()
	if addr > MaxAddress {
		return 0, ErrIDSpaceExhausted
	}

	if err := e.idx.markDirty(); err != nil {
		return 0, err
	}

	if _, err := e.data.WriteAt(e.frame(ser), addr); err != nil {
		return 0, e.rollback(addr, err)
	}
	if err := e.idx.insert(h, addr); err != nil {
		return 0, e.rollback(addr, err)
	}
	return addr, nil
}

// rollback drops the partial record at addr after a failed append. When the
// index table is torn or the data file cannot be cut back, later records
// would land at the wrong address, so e fails instead.
func (e *Enumerator[K]) rollback(addr int64, cause error) error {
	if err := e.data.Truncate(addr); err != nil {
		return e.fail(errors.Join(cause, err))
	}
	if errors.Is(cause, errTornIndex) {
		return e.fail(cause)
	}
	return cause
}
