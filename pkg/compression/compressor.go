// Package compression wraps external dataset files in compressed streams so
// text codecs can read and write gzip, zstd, snappy, s2 and lz4 files
// transparently.
//
// # Basic Usage
//
//	algo, _ := compression.Resolve("", "train.csv.zst") // detects zstd
//	w, err := compression.CreateFile("train.csv.zst", algo, compression.Default)
//	...
//	r, err := compression.OpenFile("train.csv.zst", algo)
//
// # Algorithm Selection
//
// Speed (fastest to slowest): LZ4 > Snappy/S2 > Zstd > Gzip
// Compression ratio (best to worst): Zstd > Gzip > S2 > Snappy > LZ4
package compression

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents framed snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio
type Level int

const (
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Better improves compression at cost of speed
	Better Level = 7
	// Best maximizes compression ratio
	Best Level = 9
)

const bufferSize = 64 * 1024

var extensions = map[string]Algorithm{
	".gz":   Gzip,
	".gzip": Gzip,
	".zst":  Zstd,
	".zstd": Zstd,
	".sz":   Snappy,
	".s2":   S2,
	".lz4":  LZ4,
}

// Algorithms lists every supported algorithm
func Algorithms() []Algorithm {
	return []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2}
}

// ParseAlgorithm parses an algorithm name
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case None, Gzip, Snappy, LZ4, Zstd, S2:
		return a, nil
	case "":
		return None, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm: %s", name)
	}
}

// DetectAlgorithm infers the algorithm from the file extension
func DetectAlgorithm(path string) Algorithm {
	if a, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return a
	}
	return None
}

// Resolve returns the named algorithm, or the one detected from path when
// name is empty or "auto"
func Resolve(name, path string) (Algorithm, error) {
	if name == "" || strings.EqualFold(name, "auto") {
		return DetectAlgorithm(path), nil
	}
	return ParseAlgorithm(name)
}

// NewWriter wraps w in a compressing writer. Closing the returned writer
// flushes the compressed stream but does not close w.
func NewWriter(w io.Writer, algo Algorithm, level Level) (io.WriteCloser, error) {
	switch algo {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriterLevel(w, mapGzipLevel(level))
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(mapZstdLevel(level)))
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case S2:
		return s2.NewWriter(w, mapS2Options(level)...), nil
	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, fmt.Errorf("failed to configure lz4 writer: %w", err)
		}
		return lw, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algo)
	}
}

// NewReader wraps r in a decompressing reader. Closing the returned reader
// releases decoder resources but does not close r.
func NewReader(r io.Reader, algo Algorithm) (io.ReadCloser, error) {
	switch algo {
	case None, "":
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algo)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	case Better:
		return 7
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapS2Options(level Level) []s2.WriterOption {
	switch level {
	case Better:
		return []s2.WriterOption{s2.WriterBetterCompression()}
	case Best:
		return []s2.WriterOption{s2.WriterBestCompression()}
	default:
		return nil
	}
}

// fileWriter closes the compressor, the buffer and the file in order
type fileWriter struct {
	comp io.WriteCloser
	buf  *bufio.Writer
	file *os.File
}

func (fw *fileWriter) Write(p []byte) (int, error) {
	return fw.comp.Write(p)
}

func (fw *fileWriter) Close() error {
	err := fw.comp.Close()
	if ferr := fw.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := fw.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// CreateFile creates path and returns a buffered, compressing writer over it
func CreateFile(path string, algo Algorithm, level Level) (io.WriteCloser, error) {
	file, err := os.Create(path) //nolint:gosec // G304: path is supplied by the caller
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(file, bufferSize)
	comp, err := NewWriter(buf, algo, level)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &fileWriter{comp: comp, buf: buf, file: file}, nil
}

type fileReader struct {
	comp io.ReadCloser
	file *os.File
}

func (fr *fileReader) Read(p []byte) (int, error) {
	return fr.comp.Read(p)
}

func (fr *fileReader) Close() error {
	err := fr.comp.Close()
	if cerr := fr.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenFile opens path and returns a buffered, decompressing reader over it
func OpenFile(path string, algo Algorithm) (io.ReadCloser, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path is supplied by the caller
	if err != nil {
		return nil, err
	}
	comp, err := NewReader(bufio.NewReaderSize(file, bufferSize), algo)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &fileReader{comp: comp, file: file}, nil
}
