package enumerator

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/enumstore/internal/fs"
	"github.com/hupe1980/enumstore/storage"
)

// flakyFS fails writes to files whose name ends in suffix once armed.
// Unlike fs.FaultyFS it can be armed after the files are open.
type flakyFS struct {
	fs.FileSystem
	suffix string

	mu    sync.Mutex
	skip  int
	fails int
}

func newFlakyFS(suffix string) *flakyFS {
	return &flakyFS{FileSystem: fs.Default, suffix: suffix}
}

// arm lets skip more writes through and then fails the next fails writes.
func (f *flakyFS) arm(skip, fails int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skip, f.fails = skip, fails
}

func (f *flakyFS) failWrite() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skip > 0 {
		f.skip--
		return false
	}
	if f.fails > 0 {
		f.fails--
		return true
	}
	return false
}

func (f *flakyFS) OpenFile(name string, flag int, perm os.FileMode) (fs.File, error) {
	file, err := f.FileSystem.OpenFile(name, flag, perm)
	if err != nil || !strings.HasSuffix(name, f.suffix) {
		return file, err
	}
	return &flakyFile{File: file, fsys: f}, nil
}

type flakyFile struct {
	fs.File
	fsys *flakyFS
}

func (f *flakyFile) WriteAt(p []byte, off int64) (int, error) {
	if f.fsys.failWrite() {
		return 0, fs.ErrInjected
	}
	return f.File.WriteAt(p, off)
}

// newTestIndex creates an index of the given capacity in 512-byte pages with
// a single cached page, so every page switch writes through to fsys.
func newTestIndex(t *testing.T, fsys fs.FileSystem, capacity uint32) *index {
	t.Helper()
	st, err := storage.OpenPagedFile(fsys, filepath.Join(t.TempDir(), "keys.idx"),
		storage.WithPageSize(512), storage.WithCachePages(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ix, err := createIndex(st, 20, capacity)
	require.NoError(t, err)
	return ix
}

func lookupAddr(t *testing.T, ix *index, h uint32, want int64) bool {
	t.Helper()
	_, found, err := ix.lookup(h, func(addr int64) (bool, error) {
		return addr == want, nil
	})
	require.NoError(t, err)
	return found
}

func TestIndex_Grow(t *testing.T) {
	ix := newTestIndex(t, nil, 16)

	for i := 0; i < 100; i++ {
		require.NoError(t, ix.insert(uint32(i)*0x9e3779b1, int64(i)*20))
	}
	assert.Equal(t, uint32(256), ix.hdr.capacity)
	assert.Equal(t, uint32(100), ix.hdr.count)
	assert.Equal(t, int64(99*20), ix.hdr.largest)

	for i := 0; i < 100; i++ {
		assert.True(t, lookupAddr(t, ix, uint32(i)*0x9e3779b1, int64(i)*20), "entry %d", i)
	}
}

func TestIndex_GrowWriteFailure(t *testing.T) {
	flaky := newFlakyFS(".idx")
	ix := newTestIndex(t, flaky, 64)

	// 48 entries fill a 64-slot table; the next insert grows it.
	for i := 0; i < 48; i++ {
		require.NoError(t, ix.insert(uint32(i+1), int64(i)*20))
	}
	require.NoError(t, ix.st.Flush())

	// The rehashed table spans three pages; evicting the first one fails.
	flaky.arm(0, 1)
	err := ix.insert(49, 48*20)
	require.ErrorIs(t, err, fs.ErrInjected)
	assert.NotErrorIs(t, err, errTornIndex)

	assert.Equal(t, uint32(64), ix.hdr.capacity)
	assert.Equal(t, uint32(48), ix.hdr.count)
	for i := 0; i < 48; i++ {
		assert.True(t, lookupAddr(t, ix, uint32(i+1), int64(i)*20), "entry %d", i)
	}

	require.NoError(t, ix.insert(49, 48*20))
	assert.Equal(t, uint32(128), ix.hdr.capacity)
	assert.True(t, lookupAddr(t, ix, 49, 48*20))
}

func TestIndex_GrowTorn(t *testing.T) {
	flaky := newFlakyFS(".idx")
	ix := newTestIndex(t, flaky, 64)

	for i := 0; i < 48; i++ {
		require.NoError(t, ix.insert(uint32(i+1), int64(i)*20))
	}
	require.NoError(t, ix.st.Flush())

	// Putting the old slots back fails as well.
	flaky.arm(0, 2)
	err := ix.insert(49, 48*20)
	assert.ErrorIs(t, err, errTornIndex)
	assert.ErrorIs(t, err, fs.ErrInjected)
	assert.Equal(t, uint32(64), ix.hdr.capacity)
}
