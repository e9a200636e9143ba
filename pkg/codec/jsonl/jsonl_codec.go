// Package jsonl provides a newline-delimited JSON codec. Each line holds one
// record: {"input":[...],"ideal":[...]}.
package jsonl

import (
	"io"
	"math"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/compression"
	"github.com/ajitpratap0/trainbin/pkg/errors"
)

func init() {
	_ = codec.Register("jsonl", func(cfg codec.Config) (codec.DataSetCodec, error) {
		return New(cfg)
	})
}

type record struct {
	Input []float64 `json:"input"`
	Ideal []float64 `json:"ideal"`
}

// Codec reads and writes JSON Lines files
type Codec struct {
	path        string
	inputSize   uint32
	idealSize   uint32
	compression compression.Algorithm

	rc      io.ReadCloser
	decoder *json.Decoder
	line    uint64
	rec     record

	wc      io.WriteCloser
	encoder *json.Encoder
}

// New creates a JSON Lines codec
func New(cfg codec.Config) (*Codec, error) {
	if cfg.Path == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "jsonl codec requires a path")
	}
	algo, err := compression.Resolve(cfg.Compression, cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid jsonl compression")
	}
	return &Codec{
		path:        cfg.Path,
		inputSize:   cfg.InputSize,
		idealSize:   cfg.IdealSize,
		compression: algo,
	}, nil
}

// InputSize returns the declared input size
func (c *Codec) InputSize() uint32 { return c.inputSize }

// IdealSize returns the declared ideal size
func (c *Codec) IdealSize() uint32 { return c.idealSize }

// PrepareRead opens the file for decoding
func (c *Codec) PrepareRead() error {
	if err := c.Close(); err != nil {
		return err
	}
	rc, err := compression.OpenFile(c.path, c.compression)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to open jsonl file").
			WithDetail("path", c.path)
	}
	c.rc = rc
	c.decoder = json.NewDecoder(rc)
	c.line = 0
	c.rec = record{
		Input: make([]float64, 0, c.inputSize),
		Ideal: make([]float64, 0, c.idealSize),
	}
	return nil
}

// PrepareWrite creates the file for encoding
func (c *Codec) PrepareWrite(_ uint64, inputSize, idealSize uint32) error {
	if err := c.Close(); err != nil {
		return err
	}
	c.inputSize, c.idealSize = inputSize, idealSize

	wc, err := compression.CreateFile(c.path, c.compression, compression.Default)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create jsonl file").
			WithDetail("path", c.path)
	}
	c.wc = wc
	c.encoder = json.NewEncoder(wc)
	return nil
}

// Read decodes the next line into input and ideal
func (c *Codec) Read(input, ideal []float64) (bool, error) {
	if c.decoder == nil {
		return false, errors.New(errors.ErrorTypePrecondition, "read before PrepareRead").
			WithDetail("path", c.path)
	}
	if err := codec.CheckRecord(input, ideal, c.inputSize, c.idealSize); err != nil {
		return false, err
	}

	c.rec.Input, c.rec.Ideal = c.rec.Input[:0], c.rec.Ideal[:0]
	if err := c.decoder.Decode(&c.rec); err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeValidation, "failed to decode jsonl record").
			WithDetail("path", c.path).
			WithDetail("record", c.line)
	}
	c.line++

	if len(c.rec.Input) != int(c.inputSize) || len(c.rec.Ideal) != int(c.idealSize) {
		return false, errors.Newf(errors.ErrorTypeSizeMismatch,
			"jsonl record holds %d input and %d ideal values, expected %d and %d",
			len(c.rec.Input), len(c.rec.Ideal), c.inputSize, c.idealSize).
			WithDetail("path", c.path).
			WithDetail("record", c.line-1)
	}
	copy(input, c.rec.Input)
	copy(ideal, c.rec.Ideal)
	return true, nil
}

// Write encodes one record as a line. JSON has no spelling for NaN or the
// infinities, so those values are rejected.
func (c *Codec) Write(input, ideal []float64) error {
	if c.encoder == nil {
		return errors.New(errors.ErrorTypePrecondition, "write before PrepareWrite").
			WithDetail("path", c.path)
	}
	if err := codec.CheckRecord(input, ideal, c.inputSize, c.idealSize); err != nil {
		return err
	}
	if err := checkFinite(input, "input"); err != nil {
		return err
	}
	if err := checkFinite(ideal, "ideal"); err != nil {
		return err
	}

	if err := c.encoder.Encode(record{Input: input, Ideal: ideal}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write jsonl record").
			WithDetail("path", c.path)
	}
	return nil
}

func checkFinite(values []float64, field string) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrorTypeValidation, "%s[%d] is %v, which JSON cannot represent", field, i, v)
		}
	}
	return nil
}

// Close closes the file of the current session
func (c *Codec) Close() error {
	var err error
	if c.wc != nil {
		err = c.wc.Close()
		c.wc, c.encoder = nil, nil
	}
	if c.rc != nil {
		if cerr := c.rc.Close(); err == nil {
			err = cerr
		}
		c.rc, c.decoder = nil, nil
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close jsonl file").
			WithDetail("path", c.path)
	}
	return nil
}
