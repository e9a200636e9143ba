// Package avro provides an Avro object container file codec. Records use the
// schema {input: array<double>, ideal: array<double>} and the declared sizes
// travel in the file metadata.
package avro

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/errors"
)

const (
	// Schema is the record schema written to every container
	Schema = `{
  "type": "record",
  "name": "VectorPair",
  "namespace": "trainbin",
  "fields": [
    {"name": "input", "type": {"type": "array", "items": "double"}},
    {"name": "ideal", "type": {"type": "array", "items": "double"}}
  ]
}`

	// MetaInputSize and MetaIdealSize are the OCF metadata keys holding the declared sizes
	MetaInputSize = "trainbin.input_size"
	MetaIdealSize = "trainbin.ideal_size"

	defaultBlockSize = 1000
	bufferSize       = 256 * 1024
)

func init() {
	_ = codec.Register("avro", func(cfg codec.Config) (codec.DataSetCodec, error) {
		return New(cfg)
	})
}

// Codec reads and writes Avro object container files
type Codec struct {
	path        string
	inputSize   uint32
	idealSize   uint32
	compression string
	blockSize   int

	file *os.File

	ocfr *goavro.OCFReader

	bw    *bufio.Writer
	ocfw  *goavro.OCFWriter
	batch []interface{}
}

// New creates an Avro codec. Compression picks the block codec (null,
// deflate or snappy); the block_size option sets how many records each
// block holds.
func New(cfg codec.Config) (*Codec, error) {
	if cfg.Path == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "avro codec requires a path")
	}

	compression, err := compressionName(cfg.Compression)
	if err != nil {
		return nil, err
	}

	blockSize := defaultBlockSize
	if v := cfg.Option("block_size", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errors.New(errors.ErrorTypeConfig, "avro block_size must be a positive integer").
				WithDetail("block_size", v)
		}
		blockSize = n
	}

	return &Codec{
		path:        cfg.Path,
		inputSize:   cfg.InputSize,
		idealSize:   cfg.IdealSize,
		compression: compression,
		blockSize:   blockSize,
	}, nil
}

func compressionName(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto", "none", goavro.CompressionNullLabel:
		return goavro.CompressionNullLabel, nil
	case goavro.CompressionDeflateLabel, "gzip":
		return goavro.CompressionDeflateLabel, nil
	case goavro.CompressionSnappyLabel:
		return goavro.CompressionSnappyLabel, nil
	default:
		return "", errors.New(errors.ErrorTypeConfig, "unsupported avro compression").
			WithDetail("compression", name)
	}
}

// InputSize returns the declared input size
func (c *Codec) InputSize() uint32 { return c.inputSize }

// IdealSize returns the declared ideal size
func (c *Codec) IdealSize() uint32 { return c.idealSize }

// PrepareRead opens the container and checks its recorded sizes against the
// declared ones
func (c *Codec) PrepareRead() error {
	if err := c.Close(); err != nil {
		return err
	}

	f, err := os.Open(c.path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to open avro file").
			WithDetail("path", c.path)
	}

	ocfr, err := goavro.NewOCFReader(bufio.NewReaderSize(f, bufferSize))
	if err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.ErrorTypeValidation, "not an avro object container file").
			WithDetail("path", c.path)
	}

	meta := ocfr.MetaData()
	for key, want := range map[string]uint32{MetaInputSize: c.inputSize, MetaIdealSize: c.idealSize} {
		raw, ok := meta[key]
		if !ok {
			continue
		}
		got, err := strconv.ParseUint(string(raw), 10, 32)
		if err != nil {
			_ = f.Close()
			return errors.Wrap(err, errors.ErrorTypeValidation, "invalid avro size metadata").
				WithDetail("path", c.path).
				WithDetail("key", key)
		}
		if uint32(got) != want {
			_ = f.Close()
			return errors.Newf(errors.ErrorTypeSizeMismatch, "avro file records %s=%d, declared %d", key, got, want).
				WithDetail("path", c.path)
		}
	}

	c.file, c.ocfr = f, ocfr
	return nil
}

// PrepareWrite creates the container and records the sizes in its metadata
func (c *Codec) PrepareWrite(_ uint64, inputSize, idealSize uint32) error {
	if err := c.Close(); err != nil {
		return err
	}
	c.inputSize, c.idealSize = inputSize, idealSize

	avroCodec, err := goavro.NewCodec(Schema)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to compile avro schema")
	}

	f, err := os.Create(c.path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create avro file").
			WithDetail("path", c.path)
	}
	bw := bufio.NewWriterSize(f, bufferSize)

	ocfw, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               bw,
		Codec:           avroCodec,
		CompressionName: c.compression,
		MetaData: map[string][]byte{
			MetaInputSize: []byte(strconv.FormatUint(uint64(inputSize), 10)),
			MetaIdealSize: []byte(strconv.FormatUint(uint64(idealSize), 10)),
		},
	})
	if err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to start avro container").
			WithDetail("path", c.path)
	}

	c.file, c.bw, c.ocfw = f, bw, ocfw
	c.batch = make([]interface{}, 0, c.blockSize)
	return nil
}

// Read decodes the next record into input and ideal
func (c *Codec) Read(input, ideal []float64) (bool, error) {
	if c.ocfr == nil {
		return false, errors.New(errors.ErrorTypePrecondition, "read before PrepareRead").
			WithDetail("path", c.path)
	}
	if err := codec.CheckRecord(input, ideal, c.inputSize, c.idealSize); err != nil {
		return false, err
	}

	if !c.ocfr.Scan() {
		if err := c.ocfr.Err(); err != nil {
			return false, errors.Wrap(err, errors.ErrorTypeIO, "failed to scan avro block").
				WithDetail("path", c.path)
		}
		return false, nil
	}
	datum, err := c.ocfr.Read()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeValidation, "failed to decode avro record").
			WithDetail("path", c.path)
	}

	fields, ok := datum.(map[string]interface{})
	if !ok {
		return false, errors.Newf(errors.ErrorTypeValidation, "avro datum is %T, expected a record", datum).
			WithDetail("path", c.path)
	}
	if err := c.decodeArray(fields["input"], input, "input"); err != nil {
		return false, err
	}
	if err := c.decodeArray(fields["ideal"], ideal, "ideal"); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Codec) decodeArray(value interface{}, dst []float64, field string) error {
	items, ok := value.([]interface{})
	if !ok {
		return errors.Newf(errors.ErrorTypeValidation, "avro field %s is %T, expected an array", field, value).
			WithDetail("path", c.path)
	}
	if len(items) != len(dst) {
		return errors.Newf(errors.ErrorTypeSizeMismatch, "avro field %s holds %d values, expected %d", field, len(items), len(dst)).
			WithDetail("path", c.path)
	}
	for i, item := range items {
		v, ok := item.(float64)
		if !ok {
			return errors.Newf(errors.ErrorTypeValidation, "avro field %s[%d] is %T", field, i, item).
				WithDetail("path", c.path)
		}
		dst[i] = v
	}
	return nil
}

// Write queues one record; full blocks are appended to the container
func (c *Codec) Write(input, ideal []float64) error {
	if c.ocfw == nil {
		return errors.New(errors.ErrorTypePrecondition, "write before PrepareWrite").
			WithDetail("path", c.path)
	}
	if err := codec.CheckRecord(input, ideal, c.inputSize, c.idealSize); err != nil {
		return err
	}

	c.batch = append(c.batch, map[string]interface{}{
		"input": toNative(input),
		"ideal": toNative(ideal),
	})
	if len(c.batch) >= c.blockSize {
		return c.flushBatch()
	}
	return nil
}

func toNative(values []float64) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func (c *Codec) flushBatch() error {
	if len(c.batch) == 0 {
		return nil
	}
	if err := c.ocfw.Append(c.batch); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to append avro block").
			WithDetail("path", c.path)
	}
	for i := range c.batch {
		c.batch[i] = nil
	}
	c.batch = c.batch[:0]
	return nil
}

// Close writes any queued records and closes the file
func (c *Codec) Close() error {
	if c.file == nil {
		return nil
	}

	var err error
	if c.ocfw != nil {
		err = c.flushBatch()
		if ferr := c.bw.Flush(); err == nil && ferr != nil {
			err = errors.Wrap(ferr, errors.ErrorTypeIO, "failed to flush avro file").WithDetail("path", c.path)
		}
	}
	if cerr := c.file.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, errors.ErrorTypeIO, "failed to close avro file").WithDetail("path", c.path)
	}

	c.file, c.ocfr, c.ocfw, c.bw, c.batch = nil, nil, nil, nil, nil
	return err
}
