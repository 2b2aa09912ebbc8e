package compress

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("content-hash-record-"), 512)

	for _, typ := range []Type{LZ4, ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			out, compressed, err := Compress(data, typ)
			require.NoError(t, err)
			require.True(t, compressed)
			assert.Less(t, len(out), len(data))

			got, err := Decompress(out, len(data), typ)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestCompressIncompressible(t *testing.T) {
	data := make([]byte, 4096)
	_, err := rand.Read(data)
	require.NoError(t, err)

	for _, typ := range []Type{None, LZ4, ZSTD} {
		out, compressed, err := Compress(data, typ)
		require.NoError(t, err)
		assert.False(t, compressed, typ.String())
		assert.Equal(t, data, out)
	}
}

func TestCompressEmpty(t *testing.T) {
	out, compressed, err := Compress(nil, ZSTD)
	require.NoError(t, err)
	assert.False(t, compressed)
	assert.Empty(t, out)
}

func TestCompressUnknownType(t *testing.T) {
	_, _, err := Compress([]byte("x"), Type(9))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Decompress([]byte("x"), 1, Type(9))
	assert.ErrorIs(t, err, ErrUnknownType)

	assert.False(t, Type(9).Valid())
	assert.Equal(t, "unknown(9)", Type(9).String())
}

func TestDecompressSizeMismatch(t *testing.T) {
	data := bytes.Repeat([]byte{7}, 1024)

	out, compressed, err := Compress(data, ZSTD)
	require.NoError(t, err)
	require.True(t, compressed)

	_, err = Decompress(out, len(data)+1, ZSTD)
	assert.Error(t, err)

	_, err = Decompress([]byte("abc"), 4, None)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestDecompressGarbage(t *testing.T) {
	_, err := Decompress([]byte{0xff, 0xff, 0xff, 0xff}, 64, ZSTD)
	assert.Error(t, err)
}
