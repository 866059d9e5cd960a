package source

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/iso8211/internal/testutil"
)

func TestDetect(t *testing.T) {
	assert.Equal(t, Gzip, Detect([]byte{0x1f, 0x8b, 0x08}))
	assert.Equal(t, Zstd, Detect([]byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}))
	assert.Equal(t, None, Detect([]byte("019003LE1")))
	assert.Equal(t, None, Detect(nil))
}

func TestLoad_RoundTrip(t *testing.T) {
	data := testutil.SampleFile(3)

	for _, c := range []Compression{None, Gzip, Zstd} {
		t.Run(string(c), func(t *testing.T) {
			compressed, err := Compress(data, c)
			require.NoError(t, err)

			s, err := Load(bytes.NewReader(compressed), 0)
			require.NoError(t, err)
			assert.Equal(t, c, s.Compression)
			assert.Equal(t, data, s.Data)
			assert.Equal(t, int64(len(data)), s.Reader().Size())
		})
	}
}

func TestLoad_MaxSize(t *testing.T) {
	data := testutil.SampleFile(3)

	_, err := Load(bytes.NewReader(data), int64(len(data)-1))
	assert.True(t, errors.Is(err, ErrTooLarge))

	s, err := Load(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, s.Data, len(data))

	// The limit applies to the decompressed size
	compressed, err := Compress(data, Zstd)
	require.NoError(t, err)
	_, err = Load(bytes.NewReader(compressed), int64(len(data)-1))
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestLoad_CorruptGzip(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte{0x1f, 0x8b, 0x00, 0x00}), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.000")
	data := testutil.SampleFile(1)
	require.NoError(t, os.WriteFile(path, data, 0600))

	s, err := Open(path, 0)
	require.NoError(t, err)
	assert.Equal(t, data, s.Data)

	_, err = Open(filepath.Join(t.TempDir(), "missing.000"), 0)
	assert.Error(t, err)
}
