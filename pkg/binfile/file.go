// Package binfile implements the trainbin container: a fixed-layout binary
// file of (input, ideal) float64 vector pairs behind a 24-byte header.
//
// A File is either created for writing or opened for reading, never both.
// The write side appends whole vectors; the read side hands out one value at
// a time in strict forward order. Random access goes through Mapped.
package binfile

import (
	"bufio"
	"io"
	"io/fs"
	"math"
	"os"

	"github.com/ajitpratap0/trainbin/pkg/errors"
)

const bufferSize = 256 * 1024

type mode int

const (
	modeClosed mode = iota
	modeWrite
	modeRead
)

// File is a single write session or read session over a container
type File struct {
	path   string
	file   *os.File
	mode   mode
	header Header

	w   *bufio.Writer
	r   *bufio.Reader
	buf []byte

	// values written in a write session, values consumed in a read session
	values uint64
	total  uint64
}

// Create truncates or creates path and writes a provisional header. The
// record count is finalized by Close.
func Create(path string, inputSize, idealSize uint32) (*File, error) {
	header := Header{Version: Version, InputSize: inputSize, IdealSize: idealSize, RecordCount: unfinalizedCount}
	if header.RecordWidth() == 0 {
		return nil, errors.New(errors.ErrorTypePrecondition, "input and ideal sizes are both zero").
			WithDetail("path", path)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // G304: path is supplied by the caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create binary file").
			WithDetail("path", path)
	}

	f := &File{
		path:   path,
		file:   file,
		mode:   modeWrite,
		header: header,
		w:      bufio.NewWriterSize(file, bufferSize),
	}

	hdr, _ := header.MarshalBinary()
	if _, err := f.w.Write(hdr); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to write provisional header").
			WithDetail("path", path)
	}

	return f, nil
}

// Open opens path for reading and parses its header eagerly
func Open(path string) (*File, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path is supplied by the caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, errors.ErrorTypeFormat, "binary file does not exist").
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open binary file").
			WithDetail("path", path)
	}

	cleanup := func(err error) (*File, error) {
		_ = file.Close()
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		return cleanup(errors.Wrap(err, errors.ErrorTypeIO, "failed to stat binary file").
			WithDetail("path", path))
	}

	r := bufio.NewReaderSize(file, bufferSize)
	raw := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return cleanup(errors.Wrap(err, errors.ErrorTypeFormat, "binary file is shorter than its header").
			WithDetail("path", path).
			WithDetail("size", stat.Size()))
	}

	var header Header
	if err := header.UnmarshalBinary(raw); err != nil {
		return cleanup(errors.Wrap(err, errors.ErrorTypeFormat, "invalid binary file header").
			WithDetail("path", path))
	}
	if err := header.Validate(stat.Size()); err != nil {
		return cleanup(errors.Wrap(err, errors.ErrorTypeFormat, "invalid binary file").
			WithDetail("path", path))
	}

	return &File{
		path:   path,
		file:   file,
		mode:   modeRead,
		header: header,
		r:      r,
		buf:    make([]byte, ValueSize),
		total:  header.RecordCount * header.RecordWidth(),
	}, nil
}

// Path returns the file path
func (f *File) Path() string {
	return f.path
}

// Header returns the parsed header. During a write session RecordCount is
// provisional until Close.
func (f *File) Header() Header {
	return f.header
}

// InputSize returns the number of input values per record
func (f *File) InputSize() uint32 {
	return f.header.InputSize
}

// IdealSize returns the number of ideal values per record
func (f *File) IdealSize() uint32 {
	return f.header.IdealSize
}

// RecordCount returns the number of records; in a write session it is the
// number of complete records appended so far
func (f *File) RecordCount() uint64 {
	if f.mode == modeWrite {
		return f.values / f.header.RecordWidth()
	}
	return f.header.RecordCount
}

// Append writes the values of one vector at the write cursor
func (f *File) Append(vector []float64) error {
	if f.mode != modeWrite {
		return errors.New(errors.ErrorTypePrecondition, "append requires a write session").
			WithDetail("path", f.path)
	}

	need := len(vector) * ValueSize
	if cap(f.buf) < need {
		f.buf = make([]byte, need)
	}
	buf := f.buf[:need]
	for i, v := range vector {
		byteOrder.PutUint64(buf[i*ValueSize:], math.Float64bits(v))
	}

	if _, err := f.w.Write(buf); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to append vector").
			WithDetail("path", f.path).
			WithDetail("value_offset", f.values)
	}
	f.values += uint64(len(vector))
	return nil
}

// ReadValue returns the next stored value
func (f *File) ReadValue() (float64, error) {
	if f.mode != modeRead {
		return 0, errors.New(errors.ErrorTypePrecondition, "read requires a read session").
			WithDetail("path", f.path)
	}
	if f.values >= f.total {
		return 0, errors.New(errors.ErrorTypeOutOfRange, "read past the last stored value").
			WithDetail("path", f.path).
			WithDetail("values", f.total)
	}

	if _, err := io.ReadFull(f.r, f.buf); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeIO, "failed to read value").
			WithDetail("path", f.path).
			WithDetail("value_offset", f.values)
	}
	f.values++
	return math.Float64frombits(byteOrder.Uint64(f.buf)), nil
}

// Remaining returns the number of values left in a read session
func (f *File) Remaining() uint64 {
	if f.mode != modeRead {
		return 0
	}
	return f.total - f.values
}

// Close ends the session. A write session derives the record count from the
// values appended, rewrites the header in place and syncs. When the values do
// not end on a record boundary the header is left unfinalized and a size
// mismatch is returned. Closing a closed file is a no-op.
func (f *File) Close() error {
	switch f.mode {
	case modeWrite:
		return f.closeWrite()
	case modeRead:
		f.mode = modeClosed
		if err := f.file.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to close binary file").
				WithDetail("path", f.path)
		}
		return nil
	default:
		return nil
	}
}

// Abort ends the session without finalizing. A write session keeps its
// provisional header, so Open rejects the file afterwards.
func (f *File) Abort() error {
	if f.mode != modeWrite {
		return f.Close()
	}
	f.mode = modeClosed
	var errs []error
	if err := f.w.Flush(); err != nil {
		errs = append(errs, errors.Wrap(err, errors.ErrorTypeIO, "failed to flush binary file").
			WithDetail("path", f.path))
	}
	if err := f.file.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, errors.ErrorTypeIO, "failed to close binary file").
			WithDetail("path", f.path))
	}
	return errors.Join(errs...)
}

func (f *File) closeWrite() error {
	f.mode = modeClosed

	fail := func(err error) error {
		if cerr := f.file.Close(); cerr != nil {
			return errors.Join(err, errors.Wrap(cerr, errors.ErrorTypeIO, "failed to close binary file"))
		}
		return err
	}

	if err := f.w.Flush(); err != nil {
		return fail(errors.Wrap(err, errors.ErrorTypeIO, "failed to flush binary file").
			WithDetail("path", f.path))
	}

	width := f.header.RecordWidth()
	if f.values%width != 0 {
		return fail(errors.Newf(errors.ErrorTypeSizeMismatch,
			"%d values do not form whole records of %d values", f.values, width).
			WithDetail("path", f.path).
			WithDetail("input_size", f.header.InputSize).
			WithDetail("ideal_size", f.header.IdealSize))
	}

	f.header.RecordCount = f.values / width
	hdr, _ := f.header.MarshalBinary()
	if _, err := f.file.WriteAt(hdr, 0); err != nil {
		return fail(errors.Wrap(err, errors.ErrorTypeIO, "failed to finalize header").
			WithDetail("path", f.path))
	}
	if err := f.file.Sync(); err != nil {
		return fail(errors.Wrap(err, errors.ErrorTypeIO, "failed to sync binary file").
			WithDetail("path", f.path))
	}
	if err := f.file.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close binary file").
			WithDetail("path", f.path)
	}
	return nil
}
