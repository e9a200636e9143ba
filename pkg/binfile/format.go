package binfile

import (
	"encoding/binary"
	"math/bits"

	"github.com/ajitpratap0/trainbin/pkg/errors"
)

const (
	// Magic identifies trainbin container files
	Magic = "TBIN"
	// Version is the current container format version
	Version uint16 = 1

	// HeaderSize is the size of the fixed header in bytes
	HeaderSize = 24
	// ValueSize is the size of one stored value in bytes (IEEE754 binary64)
	ValueSize = 8

	// unfinalizedCount marks a header written by Create that was never closed successfully
	unfinalizedCount = ^uint64(0)
)

var byteOrder = binary.LittleEndian

// Header is the fixed 24-byte header at the start of every container.
//
//	offset  size  field
//	0       4     magic "TBIN"
//	4       2     version
//	6       2     reserved (zero)
//	8       4     input size
//	12      4     ideal size
//	16      8     record count
type Header struct {
	Version     uint16
	InputSize   uint32
	IdealSize   uint32
	RecordCount uint64
}

// RecordWidth returns the number of values stored per record
func (h Header) RecordWidth() uint64 {
	return uint64(h.InputSize) + uint64(h.IdealSize)
}

// Finalized reports whether the record count was written by a completed write session
func (h Header) Finalized() bool {
	return h.RecordCount != unfinalizedCount
}

// DataLength returns the body length in bytes implied by the header.
// ok is false when the length does not fit in 64 bits.
func (h Header) DataLength() (length uint64, ok bool) {
	hi, values := bits.Mul64(h.RecordCount, h.RecordWidth())
	if hi != 0 {
		return 0, false
	}
	hi, length = bits.Mul64(values, ValueSize)
	if hi != 0 {
		return 0, false
	}
	return length, true
}

// FileSize returns the total container size in bytes implied by the header
func (h Header) FileSize() (uint64, bool) {
	length, ok := h.DataLength()
	if !ok || length > ^uint64(0)-HeaderSize {
		return 0, false
	}
	return length + HeaderSize, true
}

// ValueOffset returns the byte offset of value v of record i
func (h Header) ValueOffset(record uint64, value uint64) int64 {
	return int64(HeaderSize + (record*h.RecordWidth()+value)*ValueSize)
}

// MarshalBinary encodes the header in its on-disk layout
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.put(buf)
	return buf, nil
}

func (h Header) put(buf []byte) {
	copy(buf[0:4], Magic)
	version := h.Version
	if version == 0 {
		version = Version
	}
	byteOrder.PutUint16(buf[4:6], version)
	byteOrder.PutUint16(buf[6:8], 0)
	byteOrder.PutUint32(buf[8:12], h.InputSize)
	byteOrder.PutUint32(buf[12:16], h.IdealSize)
	byteOrder.PutUint64(buf[16:24], h.RecordCount)
}

// UnmarshalBinary decodes and validates a header. It does not check that the
// record count was finalized; see Validate.
func (h *Header) UnmarshalBinary(buf []byte) error {
	if len(buf) < HeaderSize {
		return errors.Newf(errors.ErrorTypeFormat, "header is %d bytes, want %d", len(buf), HeaderSize)
	}
	if string(buf[0:4]) != Magic {
		return errors.New(errors.ErrorTypeFormat, "unrecognized format marker").
			WithDetail("marker", string(buf[0:4]))
	}
	version := byteOrder.Uint16(buf[4:6])
	if version != Version {
		return errors.Newf(errors.ErrorTypeFormat, "unsupported format version %d", version).
			WithDetail("supported", Version)
	}
	if reserved := byteOrder.Uint16(buf[6:8]); reserved != 0 {
		return errors.Newf(errors.ErrorTypeFormat, "reserved header field is 0x%04x, want 0", reserved)
	}

	h.Version = version
	h.InputSize = byteOrder.Uint32(buf[8:12])
	h.IdealSize = byteOrder.Uint32(buf[12:16])
	h.RecordCount = byteOrder.Uint64(buf[16:24])
	return nil
}

// Validate checks that the header describes a finalized container of fileSize bytes
func (h Header) Validate(fileSize int64) error {
	if !h.Finalized() {
		return errors.New(errors.ErrorTypeFormat, "container was never finalized")
	}
	if h.RecordWidth() == 0 {
		return errors.New(errors.ErrorTypeFormat, "container declares zero-width records")
	}
	want, ok := h.FileSize()
	if !ok {
		return errors.New(errors.ErrorTypeFormat, "declared record count overflows file size").
			WithDetail("record_count", h.RecordCount)
	}
	if fileSize < 0 || uint64(fileSize) != want {
		return errors.Newf(errors.ErrorTypeFormat, "file is %d bytes, header implies %d", fileSize, want).
			WithDetail("record_count", h.RecordCount).
			WithDetail("input_size", h.InputSize).
			WithDetail("ideal_size", h.IdealSize)
	}
	return nil
}
