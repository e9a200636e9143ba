//go:build darwin

package mmap

import (
	"syscall"
	"unsafe"
)

const (
	protRead  = syscall.PROT_READ
	mapShared = syscall.MAP_SHARED

	// MadvRandom hints that pages are read in no particular order
	MadvRandom Advice = 1
	// MadvSequential hints that pages are read front to back
	MadvSequential Advice = 2
)

func mmap(fd int, length int) ([]byte, error) {
	return syscall.Mmap(fd, 0, length, protRead, mapShared)
}

func munmap(b []byte) error {
	return syscall.Munmap(b)
}

// syscall has no Madvise wrapper on darwin
func madvise(b []byte, advice Advice) error {
	if len(b) == 0 {
		return nil
	}
	_, _, errno := syscall.Syscall(syscall.SYS_MADVISE, uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)), uintptr(advice))
	if errno != 0 {
		return errno
	}
	return nil
}
