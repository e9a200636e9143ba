// Package csv provides a delimited-text codec: one record per row, input
// columns first, then ideal columns
package csv

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/compression"
	"github.com/ajitpratap0/trainbin/pkg/errors"
)

func init() {
	_ = codec.Register("csv", func(cfg codec.Config) (codec.DataSetCodec, error) {
		return New(cfg)
	})
}

// Codec reads and writes CSV files
type Codec struct {
	path        string
	inputSize   uint32
	idealSize   uint32
	headers     bool
	delimiter   rune
	compression compression.Algorithm

	rc     io.ReadCloser
	reader *csv.Reader

	wc     io.WriteCloser
	writer *csv.Writer
	row    []string
}

// New creates a CSV codec. Recognised options: headers (bool, default
// false) and delimiter (single character, default ",").
func New(cfg codec.Config) (*Codec, error) {
	if cfg.Path == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "csv codec requires a path")
	}

	headers, err := cfg.BoolOption("headers", false)
	if err != nil {
		return nil, err
	}

	delim := cfg.Option("delimiter", ",")
	if delim == `\t` || delim == "tab" {
		delim = "\t"
	}
	r, size := utf8.DecodeRuneInString(delim)
	if size != len(delim) || r == utf8.RuneError || r == '"' || r == '\n' || r == '\r' {
		return nil, errors.New(errors.ErrorTypeConfig, "csv delimiter must be a single character").
			WithDetail("delimiter", delim)
	}

	algo, err := compression.Resolve(cfg.Compression, cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid csv compression")
	}

	return &Codec{
		path:        cfg.Path,
		inputSize:   cfg.InputSize,
		idealSize:   cfg.IdealSize,
		headers:     headers,
		delimiter:   r,
		compression: algo,
	}, nil
}

// InputSize returns the declared input size
func (c *Codec) InputSize() uint32 { return c.inputSize }

// IdealSize returns the declared ideal size
func (c *Codec) IdealSize() uint32 { return c.idealSize }

// PrepareRead opens the file and skips the header row when configured
func (c *Codec) PrepareRead() error {
	if err := c.Close(); err != nil {
		return err
	}
	width := int(c.inputSize) + int(c.idealSize)
	if width == 0 {
		return errors.New(errors.ErrorTypePrecondition, "csv codec declares zero-width records").
			WithDetail("path", c.path)
	}

	rc, err := compression.OpenFile(c.path, c.compression)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to open csv file").
			WithDetail("path", c.path)
	}

	reader := csv.NewReader(rc)
	reader.Comma = c.delimiter
	reader.ReuseRecord = true
	reader.TrimLeadingSpace = true

	if c.headers {
		reader.FieldsPerRecord = 0
		if _, err := reader.Read(); err != nil && err != io.EOF {
			_ = rc.Close()
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to read csv header").
				WithDetail("path", c.path)
		}
	}
	reader.FieldsPerRecord = width

	c.rc, c.reader = rc, reader
	return nil
}

// PrepareWrite creates the file and writes the header row when configured
func (c *Codec) PrepareWrite(_ uint64, inputSize, idealSize uint32) error {
	if err := c.Close(); err != nil {
		return err
	}
	c.inputSize, c.idealSize = inputSize, idealSize

	wc, err := compression.CreateFile(c.path, c.compression, compression.Default)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create csv file").
			WithDetail("path", c.path)
	}

	writer := csv.NewWriter(wc)
	writer.Comma = c.delimiter
	c.row = make([]string, int(inputSize)+int(idealSize))

	if c.headers {
		for i := 0; i < int(inputSize); i++ {
			c.row[i] = "input" + strconv.Itoa(i)
		}
		for i := 0; i < int(idealSize); i++ {
			c.row[int(inputSize)+i] = "ideal" + strconv.Itoa(i)
		}
		if err := writer.Write(c.row); err != nil {
			_ = wc.Close()
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to write csv header").
				WithDetail("path", c.path)
		}
	}

	c.wc, c.writer = wc, writer
	return nil
}

// Read parses the next row into input and ideal
func (c *Codec) Read(input, ideal []float64) (bool, error) {
	if c.reader == nil {
		return false, errors.New(errors.ErrorTypePrecondition, "read before PrepareRead").
			WithDetail("path", c.path)
	}
	if err := codec.CheckRecord(input, ideal, c.inputSize, c.idealSize); err != nil {
		return false, err
	}

	fields, err := c.reader.Read()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
			return false, errors.Wrap(err, errors.ErrorTypeSizeMismatch, "csv row does not match declared sizes").
				WithDetail("path", c.path).
				WithDetail("line", perr.Line).
				WithDetail("columns", len(fields))
		}
		return false, errors.Wrap(err, errors.ErrorTypeIO, "failed to read csv row").
			WithDetail("path", c.path)
	}

	for i := range input {
		if input[i], err = c.parse(fields, i); err != nil {
			return false, err
		}
	}
	for i := range ideal {
		if ideal[i], err = c.parse(fields, len(input)+i); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (c *Codec) parse(fields []string, col int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[col]), 64)
	if err != nil {
		line, column := c.reader.FieldPos(col)
		return 0, errors.Wrap(err, errors.ErrorTypeValidation, "csv field is not a number").
			WithDetail("path", c.path).
			WithDetail("line", line).
			WithDetail("column", column)
	}
	return v, nil
}

// canonicalNaN is the only NaN that survives formatting as "NaN" and parsing back
var canonicalNaN = math.Float64bits(math.NaN())

// Write formats one row. Values use the shortest representation that parses
// back to the same float64. NaN values other than the canonical one are
// rejected since their sign and payload cannot be written as text.
func (c *Codec) Write(input, ideal []float64) error {
	if c.writer == nil {
		return errors.New(errors.ErrorTypePrecondition, "write before PrepareWrite").
			WithDetail("path", c.path)
	}
	if err := codec.CheckRecord(input, ideal, c.inputSize, c.idealSize); err != nil {
		return err
	}

	for i, v := range input {
		if err := c.format(i, v); err != nil {
			return err
		}
	}
	for i, v := range ideal {
		if err := c.format(len(input)+i, v); err != nil {
			return err
		}
	}
	if err := c.writer.Write(c.row); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write csv row").
			WithDetail("path", c.path)
	}
	return nil
}

func (c *Codec) format(column int, v float64) error {
	if math.IsNaN(v) && math.Float64bits(v) != canonicalNaN {
		return errors.Newf(errors.ErrorTypeValidation, "NaN with bits %#016x cannot be written as csv", math.Float64bits(v)).
			WithDetail("path", c.path).
			WithDetail("column", column)
	}
	c.row[column] = strconv.FormatFloat(v, 'g', -1, 64)
	return nil
}

// Close flushes pending rows and closes the file
func (c *Codec) Close() error {
	var err error
	if c.writer != nil {
		c.writer.Flush()
		err = c.writer.Error()
		if cerr := c.wc.Close(); err == nil {
			err = cerr
		}
		c.writer, c.wc = nil, nil
	}
	if c.reader != nil {
		if cerr := c.rc.Close(); err == nil {
			err = cerr
		}
		c.reader, c.rc = nil, nil
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close csv file").
			WithDetail("path", c.path)
	}
	return nil
}
