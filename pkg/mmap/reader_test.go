package mmap

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderReadRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o600))

	r, err := Open(path, MadvRandom)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(10), r.Len())
	assert.Equal(t, runtime.GOOS == "linux" || runtime.GOOS == "darwin", r.Mapped())

	b, err := r.ReadRange(3, 4)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(b))
	assert.Equal(t, int64(4), r.BytesRead())

	_, err = r.ReadRange(8, 3)
	assert.Error(t, err)
	_, err = r.ReadRange(-1, 1)
	assert.Error(t, err)
}

func TestReaderRejectsEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	_, err := Open(empty, MadvRandom)
	assert.Error(t, err)

	_, err = Open(filepath.Join(dir, "missing.bin"), MadvRandom)
	assert.Error(t, err)
}

func TestReaderClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	r, err := Open(path, MadvSequential)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.ReadRange(0, 1)
	assert.Error(t, err)
}
