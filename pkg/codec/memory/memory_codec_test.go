package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/errors"
)

func TestReadSequence(t *testing.T) {
	c, err := FromRecords(
		[][]float64{{1, 2}, {3, 4}},
		[][]float64{{1}, {0}},
	)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), c.InputSize())
	assert.Equal(t, uint32(1), c.IdealSize())

	input, ideal := make([]float64, 2), make([]float64, 1)
	_, err = c.Read(input, ideal)
	assert.True(t, errors.IsType(err, errors.ErrorTypePrecondition))

	require.NoError(t, c.PrepareRead())
	ok, err := c.Read(input, ideal)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, input)
	assert.Equal(t, []float64{1}, ideal)

	ok, err = c.Read(input, ideal)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{3, 4}, input)

	ok, err = c.Read(input, ideal)
	require.NoError(t, err)
	assert.False(t, ok)

	// preparing again restarts the sequence
	require.NoError(t, c.PrepareRead())
	ok, _ = c.Read(input, ideal)
	assert.True(t, ok)
	require.NoError(t, c.Close())
}

func TestWriteCopiesBuffers(t *testing.T) {
	c := New(0, 0)
	buf := []float64{1, 2}
	ideal := []float64{9}

	err := c.Write(buf, ideal)
	assert.True(t, errors.IsType(err, errors.ErrorTypePrecondition))

	require.NoError(t, c.PrepareWrite(2, 2, 1))
	require.NoError(t, c.Write(buf, ideal))
	buf[0] = 100
	require.NoError(t, c.Write(buf, ideal))

	assert.Equal(t, [][]float64{{1, 2}, {100, 2}}, c.Input)
	assert.Equal(t, 2, c.Len())

	err = c.Write([]float64{1}, ideal)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSizeMismatch))
}

func TestReadSizeMismatch(t *testing.T) {
	c := &Codec{Input: [][]float64{{1, 2, 3}}, Ideal: [][]float64{{1}}, inputSize: 2, idealSize: 1}
	require.NoError(t, c.PrepareRead())
	_, err := c.Read(make([]float64, 2), make([]float64, 1))
	assert.True(t, errors.IsType(err, errors.ErrorTypeSizeMismatch))

	_, err = FromRecords([][]float64{{1}}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSizeMismatch))
}

func TestRegistered(t *testing.T) {
	c, err := codec.Create("memory", codec.Config{InputSize: 4, IdealSize: 2})
	require.NoError(t, err)
	assert.Equal(t, uint32(4), c.InputSize())
	assert.Equal(t, uint32(2), c.IdealSize())
}
