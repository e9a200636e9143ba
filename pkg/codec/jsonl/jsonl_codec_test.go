package jsonl

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/errors"
)

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xor.jsonl")
	content := `{"input":[0,1],"ideal":[1]}
{"ideal":[0], "input":[1.5,-2e3]}

`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := New(codec.Config{Path: path, InputSize: 2, IdealSize: 1})
	require.NoError(t, err)
	require.NoError(t, c.PrepareRead())
	defer c.Close()

	input, ideal := make([]float64, 2), make([]float64, 1)
	ok, err := c.Read(input, ideal)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1}, input)
	assert.Equal(t, []float64{1}, ideal)

	ok, err = c.Read(input, ideal)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{1.5, -2000}, input)
	assert.Equal(t, []float64{0}, ideal)

	ok, err = c.Read(input, ideal)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"out.jsonl", "out.jsonl.zst", "out.jsonl.s2", "out.jsonl.sz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			w, err := New(codec.Config{Path: path})
			require.NoError(t, err)
			require.NoError(t, w.PrepareWrite(3, 2, 2))

			records := [][4]float64{
				{0.1, 0.2, 0.3, 0.4},
				{math.MaxFloat64, -math.SmallestNonzeroFloat64, 1.0 / 3.0, 0},
				{1e300, -1e-300, 42, -42},
			}
			for _, r := range records {
				require.NoError(t, w.Write(r[:2], r[2:]))
			}
			require.NoError(t, w.Close())

			r, err := New(codec.Config{Path: path, InputSize: 2, IdealSize: 2})
			require.NoError(t, err)
			require.NoError(t, r.PrepareRead())
			defer r.Close()

			input, ideal := make([]float64, 2), make([]float64, 2)
			for _, want := range records {
				ok, err := r.Read(input, ideal)
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, want[:2], input)
				assert.Equal(t, want[2:], ideal)
			}
			ok, err := r.Read(input, ideal)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRecordErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    errors.ErrorType
	}{
		{"short input", `{"input":[1],"ideal":[1]}`, errors.ErrorTypeSizeMismatch},
		{"long ideal", `{"input":[1,2],"ideal":[1,2]}`, errors.ErrorTypeSizeMismatch},
		{"string value", `{"input":[1,"two"],"ideal":[1]}`, errors.ErrorTypeValidation},
		{"not json", `not json`, errors.ErrorTypeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.jsonl")
			require.NoError(t, os.WriteFile(path, []byte(tc.content+"\n"), 0o600))

			c, err := New(codec.Config{Path: path, InputSize: 2, IdealSize: 1})
			require.NoError(t, err)
			require.NoError(t, c.PrepareRead())
			defer c.Close()

			_, err = c.Read(make([]float64, 2), make([]float64, 1))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tc.want), "%v", err)
		})
	}
}

func TestWriteRejectsNonFinite(t *testing.T) {
	c, err := New(codec.Config{Path: filepath.Join(t.TempDir(), "out.jsonl")})
	require.NoError(t, err)
	assert.True(t, errors.IsType(c.Write(nil, nil), errors.ErrorTypePrecondition))

	require.NoError(t, c.PrepareWrite(1, 1, 1))
	defer c.Close()
	err = c.Write([]float64{math.NaN()}, []float64{0})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	err = c.Write([]float64{0}, []float64{math.Inf(-1)})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	err = c.Write([]float64{0, 1}, []float64{0})
	assert.True(t, errors.IsType(err, errors.ErrorTypeSizeMismatch))
}

func TestRegistered(t *testing.T) {
	_, err := codec.Create("jsonl", codec.Config{Path: "x.jsonl"})
	assert.NoError(t, err)

	_, err = codec.Create("jsonl", codec.Config{})
	assert.True(t, errors.HasType(err, errors.ErrorTypeConfig))
}
