package binfile

import (
	"math"

	"github.com/ajitpratap0/trainbin/pkg/errors"
	"github.com/ajitpratap0/trainbin/pkg/mmap"
)

// Mapped is a read-only, random-access view of a finalized container
type Mapped struct {
	path   string
	reader *mmap.Reader
	header Header
}

// OpenMapped maps path and validates its header
func OpenMapped(path string) (*Mapped, error) {
	reader, err := mmap.Open(path, mmap.MadvRandom)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to map binary file").
			WithDetail("path", path)
	}

	cleanup := func(err error) (*Mapped, error) {
		_ = reader.Close()
		return nil, err
	}

	if reader.Len() < HeaderSize {
		return cleanup(errors.New(errors.ErrorTypeFormat, "binary file is shorter than its header").
			WithDetail("path", path))
	}
	raw, err := reader.ReadRange(0, HeaderSize)
	if err != nil {
		return cleanup(errors.Wrap(err, errors.ErrorTypeIO, "failed to read header").
			WithDetail("path", path))
	}

	var header Header
	if err := header.UnmarshalBinary(raw); err != nil {
		return cleanup(err)
	}
	if err := header.Validate(reader.Len()); err != nil {
		return cleanup(err)
	}

	return &Mapped{path: path, reader: reader, header: header}, nil
}

// Header returns the container header
func (m *Mapped) Header() Header {
	return m.header
}

// RecordCount returns the number of records
func (m *Mapped) RecordCount() uint64 {
	return m.header.RecordCount
}

// Record copies record i into input and ideal, which must match the declared sizes
func (m *Mapped) Record(i uint64, input, ideal []float64) error {
	if uint64(len(input)) != uint64(m.header.InputSize) || uint64(len(ideal)) != uint64(m.header.IdealSize) {
		return errors.Newf(errors.ErrorTypeSizeMismatch, "buffers of %d/%d values, container holds %d/%d",
			len(input), len(ideal), m.header.InputSize, m.header.IdealSize).
			WithDetail("path", m.path)
	}
	if i >= m.header.RecordCount {
		return errors.Newf(errors.ErrorTypeOutOfRange, "record %d of %d", i, m.header.RecordCount).
			WithDetail("path", m.path)
	}

	width := int64(m.header.RecordWidth()) * ValueSize
	raw, err := m.reader.ReadRange(m.header.ValueOffset(i, 0), width)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to read record").
			WithDetail("path", m.path).
			WithDetail("record", i)
	}

	for j := range input {
		input[j] = math.Float64frombits(byteOrder.Uint64(raw[j*ValueSize:]))
	}
	raw = raw[len(input)*ValueSize:]
	for j := range ideal {
		ideal[j] = math.Float64frombits(byteOrder.Uint64(raw[j*ValueSize:]))
	}
	return nil
}

// MemoryMapped reports whether records are served from an mmap region rather
// than a copy read into memory
func (m *Mapped) MemoryMapped() bool {
	return m.reader.Mapped()
}

// Close unmaps the container
func (m *Mapped) Close() error {
	if err := m.reader.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to unmap binary file").
			WithDetail("path", m.path)
	}
	return nil
}
