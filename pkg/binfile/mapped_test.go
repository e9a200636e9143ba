package binfile

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/trainbin/pkg/errors"
)

func TestMappedRandomAccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapped.tbin")
	var records [][2][]float64
	for i := 0; i < 50; i++ {
		f := float64(i)
		records = append(records, [2][]float64{{f, f + 0.5, f + 0.25}, {-f}})
	}
	writeContainer(t, path, 3, 1, records)

	m, err := OpenMapped(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, uint64(50), m.RecordCount())
	assert.Equal(t, uint32(3), m.Header().InputSize)
	assert.Equal(t, runtime.GOOS == "linux" || runtime.GOOS == "darwin", m.MemoryMapped())

	input := make([]float64, 3)
	ideal := make([]float64, 1)
	for _, i := range []uint64{49, 0, 17} {
		require.NoError(t, m.Record(i, input, ideal))
		assert.Equal(t, records[i][0], input)
		assert.Equal(t, records[i][1], ideal)
	}

	err = m.Record(50, input, ideal)
	assert.True(t, errors.IsType(err, errors.ErrorTypeOutOfRange))

	err = m.Record(0, make([]float64, 2), ideal)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSizeMismatch))
}

func TestMappedRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.tbin")
	require.NoError(t, os.WriteFile(path, []byte("not a container at all, sorry"), 0o600))

	_, err := OpenMapped(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFormat))

	_, err = OpenMapped(filepath.Join(dir, "missing.tbin"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFormat))
}
