// Package mmap provides read-only memory-mapped file access for random reads
// into binary training containers
package mmap

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Advice describes the expected access pattern of a mapping
type Advice int

// Reader provides memory-mapped file reading with zero-copy access
type Reader struct {
	file     *os.File
	data     []byte
	fileSize int64
	mapped   bool

	// Stats
	bytesRead int64

	mu sync.RWMutex
}

// Open maps filename read-only. The access advice hints the kernel about the
// expected pattern (MadvRandom or MadvSequential). On platforms without mmap
// the file is read into memory instead.
func Open(filename string, advice Advice) (*Reader, error) {
	file, err := os.Open(filename) //nolint:gosec // G304: path is supplied by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fileSize := stat.Size()
	if fileSize == 0 {
		file.Close()
		return nil, fmt.Errorf("file is empty")
	}

	r := &Reader{file: file, fileSize: fileSize}

	data, err := mmap(int(file.Fd()), int(fileSize))
	if err != nil {
		data = make([]byte, fileSize)
		if _, rerr := io.ReadFull(file, data); rerr != nil {
			file.Close()
			return nil, fmt.Errorf("failed to mmap file (%v) and read fallback failed: %w", err, rerr)
		}
		r.data = data
		return r, nil
	}

	// Non-fatal, the mapping works without the hint
	_ = madvise(data, advice)

	r.data = data
	r.mapped = true
	return r, nil
}

// Len returns the mapped length in bytes
func (r *Reader) Len() int64 {
	return r.fileSize
}

// Mapped reports whether the data is backed by an mmap region
func (r *Reader) Mapped() bool {
	return r.mapped
}

// ReadRange returns a zero-copy view of length bytes starting at offset.
// The slice is valid until Close.
func (r *Reader) ReadRange(offset, length int64) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.data == nil {
		return nil, fmt.Errorf("reader is closed")
	}
	if offset < 0 || length < 0 || offset+length > r.fileSize {
		return nil, fmt.Errorf("range [%d, %d) out of bounds [0, %d)", offset, offset+length, r.fileSize)
	}

	r.bytesRead += length
	return r.data[offset : offset+length], nil
}

// Close unmaps the file and closes it
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error

	// Unmap the file
	if r.data != nil {
		if r.mapped {
			err = munmap(r.data)
		}
		r.data = nil
	}

	// Close the file
	if r.file != nil {
		if closeErr := r.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		r.file = nil
	}

	return err
}

// BytesRead returns the number of bytes handed out through ReadRange
func (r *Reader) BytesRead() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bytesRead
}
