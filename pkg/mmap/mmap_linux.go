//go:build linux

package mmap

import "syscall"

const (
	protRead  = syscall.PROT_READ
	mapShared = syscall.MAP_SHARED

	// MadvRandom hints that pages are read in no particular order
	MadvRandom Advice = syscall.MADV_RANDOM
	// MadvSequential hints that pages are read front to back
	MadvSequential Advice = syscall.MADV_SEQUENTIAL
)

func mmap(fd int, length int) ([]byte, error) {
	return syscall.Mmap(fd, 0, length, protRead, mapShared)
}

func munmap(b []byte) error {
	return syscall.Munmap(b)
}

func madvise(b []byte, advice Advice) error {
	return syscall.Madvise(b, int(advice))
}
