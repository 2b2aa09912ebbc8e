package enumstore

import (
	"context"
	"io"

	"github.com/hupe1980/enumstore/contenthash"
	"github.com/hupe1980/enumstore/enumerator"
	"github.com/hupe1980/enumstore/keydesc"
	"github.com/hupe1980/enumstore/snapshot"
)

type (
	// ID identifies a stored key.
	ID = enumerator.ID

	// Stats describes the state of an open store.
	Stats = enumerator.Stats

	// Report is the result of an index check.
	Report = enumerator.Report
)

// NullID is returned by lookups that find nothing.
const NullID = enumerator.NullID

// Open opens the enumerator at path for keys described by desc, creating it
// if absent. The index is kept in path + ".idx".
func Open[K any](path string, desc keydesc.Descriptor[K], optFns ...Option) (*enumerator.Enumerator[K], error) {
	o := applyOptions(optFns)
	ctx := context.Background()

	e, err := enumerator.Open(path, desc, o.enumeratorOptions()...)
	if err != nil {
		o.logger.LogOpen(ctx, path, Stats{}, err)
		return nil, err
	}
	o.logger.LogOpen(ctx, path, e.Stats(), nil)

	if o.verifyOnOpen {
		rep, err := e.Verify(ctx)
		o.logger.LogVerify(ctx, path, rep, err)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
	}
	return e, nil
}

// OpenStrings opens an enumerator of UTF-8 strings.
func OpenStrings(path string, optFns ...Option) (*enumerator.Enumerator[string], error) {
	return Open[string](path, keydesc.String{}, optFns...)
}

// OpenBytes opens an enumerator of arbitrary byte strings.
func OpenBytes(path string, optFns ...Option) (*enumerator.Enumerator[[]byte], error) {
	return Open[[]byte](path, keydesc.Bytes{}, optFns...)
}

// OpenContentHashes opens an enumerator of 20-byte content hashes with dense
// IDs 0, 1, 2, ...
func OpenContentHashes(path string, optFns ...Option) (*contenthash.Enumerator, error) {
	e, err := Open[[]byte](path, keydesc.ContentHash, optFns...)
	if err != nil {
		return nil, err
	}
	hashes, err := contenthash.Wrap(e)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	return hashes, nil
}

// Export writes a snapshot of e to w. See package snapshot for the format.
func Export[K any](ctx context.Context, w io.Writer, e *enumerator.Enumerator[K], optFns ...Option) (int, error) {
	o := applyOptions(optFns)
	n, err := snapshot.Export(ctx, w, e, o.snapshotOptions()...)
	if err != nil {
		o.logger.ErrorContext(ctx, "export failed", "path", e.Path(), "records", n, "error", err)
	}
	return n, err
}

// Import reads a snapshot into the empty enumerator e.
func Import[K any](ctx context.Context, r io.Reader, e *enumerator.Enumerator[K], optFns ...Option) (int, error) {
	o := applyOptions(optFns)
	n, err := snapshot.Import(ctx, r, e, o.snapshotOptions()...)
	if err != nil {
		o.logger.ErrorContext(ctx, "import failed", "path", e.Path(), "records", n, "error", err)
	}
	return n, err
}
