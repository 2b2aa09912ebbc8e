package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("read only bytes"), 0o644))

	m, err := OpenMappedFile(path)
	require.NoError(t, err)

	assert.Equal(t, int64(15), m.Size())
	assert.Equal(t, "read only bytes", string(m.Bytes()))

	buf := make([]byte, 4)
	_, err = m.ReadAt(buf, 5)
	require.NoError(t, err)
	assert.Equal(t, "only", string(buf))

	_, err = m.ReadAt(buf, 13)
	assert.ErrorIs(t, err, io.EOF)

	_, err = m.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = m.Append([]byte("x"))
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, m.Truncate(0), ErrReadOnly)
	assert.NoError(t, m.Flush())
	assert.NoError(t, m.Sync())
	assert.False(t, m.IsDirty())

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	_, err = m.ReadAt(buf, 0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, m.Bytes())
}

func TestMappedFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := OpenMappedFile(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, int64(0), m.Size())
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMappedFile_Missing(t *testing.T) {
	_, err := OpenMappedFile(filepath.Join(t.TempDir(), "missing"))
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "mmap", serr.Op)
}
