// Package errors provides examples of structured error handling in trainbin.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/trainbin/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeFormat, "unrecognized container marker").
		WithDetail("path", "train.tbin").
		WithDetail("marker", "XXXX")

	fmt.Println(err.Error())

	// Output:
	// format: unrecognized container marker
}

// ExampleWrap shows how to wrap storage errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeIO, "failed to read container header").
		WithDetail("path", "train.tbin")

	if errors.IsType(err, errors.ErrorTypeIO) {
		fmt.Println("This is an I/O error")
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Caused by a truncated file")
	}

	// Output:
	// This is an I/O error
	// Caused by a truncated file
}

// ExampleHasType shows how to look for a cause deeper in the chain.
func ExampleHasType() {
	inner := errors.New(errors.ErrorTypeOutOfRange, "read past last value")
	outer := errors.Wrap(inner, errors.ErrorTypeIO, "export failed")

	fmt.Println(errors.IsType(outer, errors.ErrorTypeOutOfRange))
	fmt.Println(errors.HasType(outer, errors.ErrorTypeOutOfRange))

	// Output:
	// false
	// true
}
