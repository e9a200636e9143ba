// Package memory provides an in-memory codec over slices of vector pairs
package memory

import (
	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/errors"
)

// maxPrealloc caps how many records PrepareWrite reserves up front
const maxPrealloc = 1 << 16

func init() {
	_ = codec.Register("memory", func(cfg codec.Config) (codec.DataSetCodec, error) {
		return New(cfg.InputSize, cfg.IdealSize), nil
	})
}

// Codec holds records in memory. Reading yields Input[i], Ideal[i] in order;
// writing appends copies of the records handed to it.
type Codec struct {
	Input [][]float64
	Ideal [][]float64

	inputSize uint32
	idealSize uint32

	reading  bool
	writing  bool
	position int
}

// New creates an empty codec with the given declared sizes
func New(inputSize, idealSize uint32) *Codec {
	return &Codec{inputSize: inputSize, idealSize: idealSize}
}

// FromRecords creates a codec that reads the given records. The declared
// sizes are taken from the first record.
func FromRecords(input, ideal [][]float64) (*Codec, error) {
	if len(input) != len(ideal) {
		return nil, errors.Newf(errors.ErrorTypeSizeMismatch, "%d input vectors for %d ideal vectors", len(input), len(ideal))
	}
	c := &Codec{Input: input, Ideal: ideal}
	if len(input) > 0 {
		c.inputSize = uint32(len(input[0])) //nolint:gosec // vector lengths are far below 2^32
		c.idealSize = uint32(len(ideal[0])) //nolint:gosec
	}
	return c, nil
}

// InputSize returns the declared input size
func (c *Codec) InputSize() uint32 { return c.inputSize }

// IdealSize returns the declared ideal size
func (c *Codec) IdealSize() uint32 { return c.idealSize }

// Len returns the number of records held
func (c *Codec) Len() int { return len(c.Input) }

// PrepareRead rewinds to the first record
func (c *Codec) PrepareRead() error {
	if len(c.Input) != len(c.Ideal) {
		return errors.Newf(errors.ErrorTypeSizeMismatch, "%d input vectors for %d ideal vectors", len(c.Input), len(c.Ideal))
	}
	c.reading, c.writing = true, false
	c.position = 0
	return nil
}

// PrepareWrite discards held records and adopts the given sizes
func (c *Codec) PrepareWrite(recordCount uint64, inputSize, idealSize uint32) error {
	c.inputSize, c.idealSize = inputSize, idealSize
	n := recordCount
	if n > maxPrealloc {
		n = maxPrealloc
	}
	c.Input = make([][]float64, 0, n)
	c.Ideal = make([][]float64, 0, n)
	c.reading, c.writing = false, true
	return nil
}

// Read copies the next record into input and ideal
func (c *Codec) Read(input, ideal []float64) (bool, error) {
	if !c.reading {
		return false, errors.New(errors.ErrorTypePrecondition, "read before PrepareRead")
	}
	if c.position >= len(c.Input) {
		return false, nil
	}
	in, id := c.Input[c.position], c.Ideal[c.position]
	if len(in) != len(input) || len(id) != len(ideal) {
		return false, errors.Newf(errors.ErrorTypeSizeMismatch, "record %d holds %d/%d values, buffers hold %d/%d",
			c.position, len(in), len(id), len(input), len(ideal))
	}
	copy(input, in)
	copy(ideal, id)
	c.position++
	return true, nil
}

// Write appends copies of input and ideal
func (c *Codec) Write(input, ideal []float64) error {
	if !c.writing {
		return errors.New(errors.ErrorTypePrecondition, "write before PrepareWrite")
	}
	if err := codec.CheckRecord(input, ideal, c.inputSize, c.idealSize); err != nil {
		return err
	}
	c.Input = append(c.Input, append([]float64(nil), input...))
	c.Ideal = append(c.Ideal, append([]float64(nil), ideal...))
	return nil
}

// Close ends the current session; held records stay available
func (c *Codec) Close() error {
	c.reading, c.writing = false, false
	return nil
}
