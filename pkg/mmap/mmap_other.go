//go:build !linux && !darwin

package mmap

import "errors"

const (
	// MadvRandom hints that pages are read in no particular order
	MadvRandom Advice = 0
	// MadvSequential hints that pages are read front to back
	MadvSequential Advice = 0
)

var errUnsupported = errors.New("mmap: not supported on this platform")

func mmap(int, int) ([]byte, error) {
	return nil, errUnsupported
}

func munmap([]byte) error {
	return errUnsupported
}

func madvise([]byte, Advice) error {
	return nil
}
