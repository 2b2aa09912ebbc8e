package contenthash

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/enumstore/enumerator"
	"github.com/hupe1980/enumstore/keydesc"
)

func sha(s string) []byte {
	h := sha1.Sum([]byte(s))
	return h[:]
}

func open(t *testing.T) *Enumerator {
	t.Helper()
	e, err := Open(filepath.Join(t.TempDir(), "content.hashes"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestScenarios(t *testing.T) {
	e := open(t)

	// 1
	h1 := sha("a")
	id, err := e.Enumerate(h1)
	require.NoError(t, err)
	assert.Equal(t, enumerator.ID(0), id)
	v, err := e.ValueOf(0)
	require.NoError(t, err)
	assert.Equal(t, h1, v)

	// 2
	id, err = e.Enumerate(h1)
	require.NoError(t, err)
	assert.Equal(t, enumerator.ID(0), id)
	assert.Equal(t, enumerator.ID(0), e.LargestID())

	// 3
	id, err = e.Enumerate(sha("b"))
	require.NoError(t, err)
	assert.Equal(t, enumerator.ID(1), id)
	assert.Equal(t, enumerator.ID(1), e.LargestID())

	// 4
	id, err = e.TryEnumerate(sha("c"))
	require.NoError(t, err)
	assert.Equal(t, enumerator.NullID, id)
	assert.Equal(t, enumerator.ID(1), e.LargestID())

	// 5
	v, err = e.ValueOf(5)
	assert.ErrorIs(t, err, keydesc.ErrDecode)
	assert.Nil(t, v)

	// 6
	x := sha("prefix")
	y := append([]byte(nil), x...)
	for i := 4; i < RecordSize; i++ {
		y[i] = ^y[i]
	}
	idX, err := e.Enumerate(x)
	require.NoError(t, err)
	idY, err := e.Enumerate(y)
	require.NoError(t, err)
	assert.Equal(t, enumerator.ID(2), idX)
	assert.Equal(t, enumerator.ID(3), idY)

	v, err = e.ValueOf(idX)
	require.NoError(t, err)
	assert.Equal(t, x, v)
	v, err = e.ValueOf(idY)
	require.NoError(t, err)
	assert.Equal(t, y, v)
}

func TestEmptyStore(t *testing.T) {
	e := open(t)

	assert.Equal(t, enumerator.NullID, e.LargestID())
	assert.Equal(t, 0, e.Len())

	_, err := e.ValueOf(0)
	assert.ErrorIs(t, err, keydesc.ErrDecode)
}

func TestTryEnumerateIsCompacted(t *testing.T) {
	e := open(t)

	for i := 0; i < 10; i++ {
		_, err := e.Enumerate(sha(fmt.Sprint(i)))
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		id, err := e.TryEnumerate(sha(fmt.Sprint(i)))
		require.NoError(t, err)
		assert.Equal(t, enumerator.ID(i), id)
	}
}

func TestCompactionMatchesGenericLayer(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(filepath.Join(dir, "compact"))
	require.NoError(t, err)
	defer e.Close()

	raw, err := enumerator.Open[[]byte](filepath.Join(dir, "raw"), keydesc.ContentHash)
	require.NoError(t, err)
	defer raw.Close()

	keys := make([][]byte, 0, 40)
	for i := 0; i < 40; i++ {
		keys = append(keys, sha(fmt.Sprint(i%25))) // with repeats
	}

	for _, k := range keys {
		id, err := e.DoWriteData(k)
		require.NoError(t, err)
		addr, err := raw.Enumerate(k)
		require.NoError(t, err)

		assert.Equal(t, int64(addr), int64(id)*RecordSize)
		assert.Equal(t, int64(raw.LargestID()), int64(e.LargestID())*RecordSize)
	}
}

func TestMonotonicWatermark(t *testing.T) {
	e := open(t)

	last := e.LargestID()
	for i := 0; i < 100; i++ {
		_, err := e.Enumerate(sha(fmt.Sprint(i % 30)))
		require.NoError(t, err)

		cur := e.LargestID()
		assert.GreaterOrEqual(t, cur, last)
		if i < 30 {
			assert.Equal(t, last+1, cur)
		} else {
			assert.Equal(t, last, cur)
		}
		last = cur
	}
}

func TestToLogicalToPhysical(t *testing.T) {
	id, err := ToLogical(60)
	require.NoError(t, err)
	assert.Equal(t, enumerator.ID(3), id)

	addr, err := ToPhysical(3)
	require.NoError(t, err)
	assert.Equal(t, int64(60), addr)

	for _, bad := range []int64{-20, 7, 41, enumerator.MaxAddress + 20} {
		_, err := ToLogical(bad)
		assert.ErrorIs(t, err, keydesc.ErrDecode, "addr %d", bad)
	}

	for _, bad := range []enumerator.ID{-1, enumerator.MaxAddress/RecordSize + 1} {
		_, err := ToPhysical(bad)
		assert.ErrorIs(t, err, keydesc.ErrDecode, "id %d", bad)
	}
}

func TestValueAtRaw(t *testing.T) {
	e := open(t)

	for i := 0; i < 3; i++ {
		_, err := e.Enumerate(sha(fmt.Sprint(i)))
		require.NoError(t, err)
	}

	// Raw probes carry record addresses and are not translated again.
	v, err := e.ValueAt(40, enumerator.ProbeRaw)
	require.NoError(t, err)
	assert.Equal(t, sha("2"), v)

	v, err = e.ValueAt(2, enumerator.ProbeLogical)
	require.NoError(t, err)
	assert.Equal(t, sha("2"), v)

	_, err = e.ValueAt(2, enumerator.ProbeRaw)
	assert.ErrorIs(t, err, keydesc.ErrDecode)
}

func TestIsKeyAtIndex(t *testing.T) {
	e := open(t)

	for i := 0; i < 5; i++ {
		_, err := e.Enumerate(sha(fmt.Sprint(i)))
		require.NoError(t, err)
	}

	ok, err := e.IsKeyAtIndex(sha("3"), 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.IsKeyAtIndex(sha("3"), 2)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, id := range []enumerator.ID{5, 100, -1} {
		ok, err = e.IsKeyAtIndex(sha("3"), id)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestConcurrentProbesAreIsolated(t *testing.T) {
	e := open(t)

	const n = 64
	for i := 0; i < n; i++ {
		_, err := e.Enumerate(sha(fmt.Sprint(i)))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				j := (i + w) % n
				if w%2 == 0 {
					ok, err := e.IsKeyAtIndex(sha(fmt.Sprint(j)), enumerator.ID(j))
					assert.NoError(t, err)
					assert.True(t, ok)
				} else {
					// Plain reverse lookups interleaved with probes stay compacted.
					v, err := e.ValueOf(enumerator.ID(j))
					assert.NoError(t, err)
					assert.Equal(t, sha(fmt.Sprint(j)), v)
				}
			}
		}()
	}
	wg.Wait()
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "022fd72171272b8eede057e64129f593e49f6ff2", hex.EncodeToString(Digest([]byte("hello"))))
	assert.Equal(t, "f944dcd635f9801f7ac90a407fbc479964dec024", hex.EncodeToString(Digest(nil)))
	assert.Len(t, Digest([]byte("x")), RecordSize)
}

func TestFindOrCreate(t *testing.T) {
	e := open(t)

	id, reused, err := e.FindOrCreate([]byte("package main"))
	require.NoError(t, err)
	assert.Equal(t, enumerator.ID(0), id)
	assert.False(t, reused)

	id, reused, err = e.FindOrCreate([]byte("package util"))
	require.NoError(t, err)
	assert.Equal(t, enumerator.ID(1), id)
	assert.False(t, reused)

	id, reused, err = e.FindOrCreate([]byte("package main"))
	require.NoError(t, err)
	assert.Equal(t, enumerator.ID(0), id)
	assert.True(t, reused)

	got, err := e.TryEnumerate(Digest([]byte("package util")))
	require.NoError(t, err)
	assert.Equal(t, enumerator.ID(1), got)
}

func TestReopenAndAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.hashes")

	e, err := Open(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := e.Enumerate(sha(fmt.Sprint(i)))
		require.NoError(t, err)
	}
	require.NoError(t, e.Flush())
	assert.False(t, e.IsDirty())
	require.NoError(t, e.Close())

	e, err = Open(path, enumerator.WithReadOnly())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, enumerator.ID(4), e.LargestID())
	assert.Equal(t, enumerator.ID(4), e.Stats().LargestID)

	var ids []enumerator.ID
	for entry, err := range e.All(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, sha(fmt.Sprint(entry.ID)), entry.Key)
		ids = append(ids, entry.ID)
	}
	assert.Equal(t, []enumerator.ID{0, 1, 2, 3, 4}, ids)

	_, err = e.Verify(context.Background())
	require.NoError(t, err)
}

func TestWrap(t *testing.T) {
	dir := t.TempDir()

	names, err := enumerator.Open[[]byte](filepath.Join(dir, "names"), keydesc.Bytes{})
	require.NoError(t, err)
	defer names.Close()

	_, err = Wrap(names)
	assert.ErrorIs(t, err, ErrWrongKeySize)

	raw, err := enumerator.Open[[]byte](filepath.Join(dir, "raw"), keydesc.ContentHash)
	require.NoError(t, err)
	e, err := Wrap(raw)
	require.NoError(t, err)
	defer e.Close()

	assert.Same(t, raw, e.Inner())
}
