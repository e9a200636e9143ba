// Package codec defines the contract between the binary converter and an
// external data representation, and a registry that lets callers select a
// concrete codec by name.
//
// The converter knows nothing about a codec's internals. It asks for the
// declared vector sizes, prepares the codec once for reading or writing,
// streams records through caller-owned buffers and closes the codec.
//
// # Implementing a codec
//
//	type myCodec struct{ ... }
//
//	func (c *myCodec) InputSize() uint32 { return c.inputSize }
//	...
//
//	func init() {
//	    codec.Register("mine", func(cfg codec.Config) (codec.DataSetCodec, error) {
//	        return newMyCodec(cfg)
//	    })
//	}
package codec

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/trainbin/pkg/errors"
)

// DataSetCodec moves fixed-width (input, ideal) records between the converter
// and an external representation.
//
// Read fills input and ideal with the next record and reports whether one was
// produced. The sequence is lazy, finite, forward-only and cannot be
// restarted without preparing again. Implementations must not retain the
// buffers handed to Read or Write; the converter reuses them for every record.
type DataSetCodec interface {
	// InputSize is the number of input values per record
	InputSize() uint32
	// IdealSize is the number of ideal values per record
	IdealSize() uint32

	// PrepareRead readies the codec to produce records
	PrepareRead() error
	// PrepareWrite readies the codec to consume recordCount records of the given sizes
	PrepareWrite(recordCount uint64, inputSize, idealSize uint32) error

	// Read fills input and ideal with the next record
	Read(input, ideal []float64) (bool, error)
	// Write consumes one record
	Write(input, ideal []float64) error

	// Close releases every resource held by the codec
	Close() error
}

// Config carries the settings shared by file-backed codecs. Codec specific
// settings go in Options.
type Config struct {
	// Path of the external file, when the codec is file backed
	Path string `yaml:"path" json:"path"`
	// InputSize declared for reading
	InputSize uint32 `yaml:"input_size" json:"input_size"`
	// IdealSize declared for reading
	IdealSize uint32 `yaml:"ideal_size" json:"ideal_size"`
	// Compression of the external file (none, gzip, zstd, snappy, s2, lz4); empty detects from Path
	Compression string `yaml:"compression" json:"compression"`
	// Options holds codec specific settings
	Options map[string]string `yaml:"options" json:"options"`
}

// Option returns the named option or def when unset
func (c Config) Option(name, def string) string {
	if v, ok := c.Options[name]; ok && v != "" {
		return v
	}
	return def
}

// BoolOption parses the named option as a bool
func (c Config) BoolOption(name string, def bool) (bool, error) {
	v, ok := c.Options[name]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, errors.Wrap(err, errors.ErrorTypeConfig, "invalid boolean option").
			WithDetail("option", name).
			WithDetail("value", v)
	}
	return b, nil
}

// ListOption splits the named option on commas, trimming blanks
func (c Config) ListOption(name string) []string {
	v := c.Option(name, "")
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CheckRecord verifies that input and ideal match the declared sizes
func CheckRecord(input, ideal []float64, inputSize, idealSize uint32) error {
	if uint64(len(input)) != uint64(inputSize) || uint64(len(ideal)) != uint64(idealSize) {
		return errors.Newf(errors.ErrorTypeSizeMismatch,
			"record buffers hold %d/%d values, codec declares %d/%d",
			len(input), len(ideal), inputSize, idealSize)
	}
	return nil
}
