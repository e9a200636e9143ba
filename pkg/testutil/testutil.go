// Package testutil provides fixtures shared by trainbin tests
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/trainbin/pkg/binfile"
)

// XORCSV is the XOR truth table with two inputs and one ideal value per row
const XORCSV = "0,0,0\n0,1,1\n1,0,1\n1,1,0\n"

// XORRecords returns the XOR truth table as input/ideal pairs
func XORRecords() (inputs, ideals [][]float64) {
	inputs = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	ideals = [][]float64{{0}, {1}, {1}, {0}}
	return inputs, ideals
}

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ testing.TB) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// CreateTempFile writes content to name inside a fresh temp dir and returns its path
func CreateTempFile(t testing.TB, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// WriteContainer writes a finalized container holding the given records.
// inputs must not be empty; the first record fixes the sizes.
func WriteContainer(t testing.TB, path string, inputs, ideals [][]float64) {
	t.Helper()
	if len(inputs) != len(ideals) {
		t.Fatalf("%d inputs for %d ideals", len(inputs), len(ideals))
	}

	var inputSize, idealSize uint32
	if len(inputs) > 0 {
		inputSize, idealSize = uint32(len(inputs[0])), uint32(len(ideals[0])) //nolint:gosec
	}
	f, err := binfile.Create(path, inputSize, idealSize)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	for i := range inputs {
		if err := f.Append(inputs[i]); err != nil {
			t.Fatalf("failed to append input %d: %v", i, err)
		}
		if err := f.Append(ideals[i]); err != nil {
			t.Fatalf("failed to append ideal %d: %v", i, err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to finalize container: %v", err)
	}
}
