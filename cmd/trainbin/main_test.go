package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/trainbin/pkg/errors"
	"github.com/ajitpratap0/trainbin/pkg/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersionAndCodecs(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "trainbin v"+version)

	out, err = execute(t, "codecs")
	require.NoError(t, err)
	for _, name := range []string{"avro", "csv", "jsonl", "sql"} {
		assert.Contains(t, out, "  - "+name+"\n")
	}
}

func TestImportInspectExport(t *testing.T) {
	src := testutil.CreateTempFile(t, "xor.csv", []byte(testutil.XORCSV))
	dir := filepath.Dir(src)
	bin := filepath.Join(dir, "xor.tbin")

	out, err := execute(t, "import", "--codec", "csv", "--file", src, "--input-size", "2", "--ideal-size", "1", "--binary", bin)
	require.NoError(t, err)
	assert.Contains(t, out, "import: 4 records (2 input, 1 ideal)")

	out, err = execute(t, "inspect", bin, "--records", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "record count: 4\n")
	assert.Regexp(t, `access:       (mmap|read)\n`, out)
	assert.Contains(t, out, "0: [0, 0] -> [0]\n")
	assert.Contains(t, out, "1: [0, 1] -> [1]\n")
	assert.NotContains(t, out, "2: [")

	dst := filepath.Join(dir, "xor.jsonl")
	out, err = execute(t, "export", "--codec", "jsonl", "--file", dst, "--binary", bin)
	require.NoError(t, err)
	assert.Contains(t, out, "export: 4 records")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, 4, bytes.Count(data, []byte("\n")))
}

func TestRunJobFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "xor.csv")
	require.NoError(t, os.WriteFile(src, []byte("1;2;3\n"), 0o600))
	bin := filepath.Join(dir, "xor.tbin")

	t.Setenv("XOR_DIR", dir)
	job := `name: xor
direction: import
binary_file: ${XOR_DIR}/xor.tbin
codec:
  name: csv
  path: ${XOR_DIR}/xor.csv
  input_size: 2
  ideal_size: 1
  options:
    delimiter: ";"
logging:
  level: error
`
	cfgPath := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(job), 0o600))

	out, err := execute(t, "run", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "import: 1 records")
	assert.FileExists(t, bin)
}

func TestInspectClampsRecords(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "small.tbin")
	testutil.WriteContainer(t, bin, [][]float64{{0.5, -1}}, [][]float64{{1e-3}})

	out, err := execute(t, "inspect", "-n", "10", bin)
	require.NoError(t, err)
	assert.Contains(t, out, "input size:   2\n")
	assert.Contains(t, out, "ideal size:   1\n")
	assert.Contains(t, out, "0: [0.5, -1] -> [0.001]\n")
	assert.NotContains(t, out, "1: [")
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "inspect", filepath.Join(dir, "missing.tbin"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFormat))

	_, err = execute(t, "import", "--codec", "csv", "--file", filepath.Join(dir, "x.csv"))
	require.Error(t, err)

	_, err = execute(t, "import", "--codec", "nope", "--binary", filepath.Join(dir, "x.tbin"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = execute(t, "run", "--config", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	_, err = execute(t, "--log-level", "loud", "version")
	require.Error(t, err)
}
