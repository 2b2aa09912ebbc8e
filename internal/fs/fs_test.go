package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.dat")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("J"), 0)
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "Jello", string(buf))

	assert.NoError(t, f.Sync())
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	assert.NoError(t, f.Close())

	assert.NoError(t, lfs.Truncate(fpath, 3))
	info, err = lfs.Stat(fpath)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size())

	_, err = lfs.Stat(filepath.Join(dir, "missing.dat"))
	assert.True(t, os.IsNotExist(err))
}

func TestOpenStoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.dat")

	f, err := OpenStoreFile(nil, path)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("abc"), 2)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Reopening keeps the contents.
	f, err = OpenStoreFile(LocalFS{}, path)
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
}

func TestFaultyFS_WriteBudget(t *testing.T) {
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("budget", Fault{FailAfterBytes: 5})

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "budget.dat"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.WriteAt([]byte("!"), 5)
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)
}

func TestFaultyFS_FailOnWrite(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("ro", Fault{FailOnWrite: true})

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "ro.dat"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, ErrInjected)

	_, err = f.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFaultyFS_ReadSyncClose(t *testing.T) {
	boom := errors.New("boom")
	ffs := NewFaultyFS(nil)
	ffs.AddRule(".idx", Fault{FailOnRead: true, FailOnSync: true, FailOnClose: true, Err: boom})

	dir := t.TempDir()
	f, err := ffs.OpenFile(filepath.Join(dir, "store.idx"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, f.Sync(), boom)
	assert.ErrorIs(t, f.Close(), boom)

	// Files not matching any rule are passed through untouched.
	plain, err := ffs.OpenFile(filepath.Join(dir, "store.dat"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.NoError(t, plain.Sync())
	assert.NoError(t, plain.Close())
}

func TestFaultyFS_LongestRuleWins(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("store", Fault{FailOnSync: true})
	ffs.AddRule("store.idx", Fault{})

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "store.idx"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()
	assert.NoError(t, f.Sync())

	ffs.ClearRules()
	_, ok := ffs.match("store.idx")
	assert.False(t, ok)
}

func TestFaultyFS_Delegation(t *testing.T) {
	ffs := NewFaultyFS(LocalFS{})
	dir := filepath.Join(t.TempDir(), "subdir")
	assert.NoError(t, ffs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.dat")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.NoError(t, ffs.Truncate(fpath, 10))
	info, err := ffs.Stat(fpath)
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size())

}
