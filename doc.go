// Package trainbin converts machine-learning training datasets between
// external representations and a compact binary container.
//
// A dataset is an ordered sequence of records. Every record pairs an input
// vector with an ideal (expected output) vector, and every record in a dataset
// has the same two vector lengths.
//
// # Container format
//
// A container is a 24-byte little-endian header followed by the records as
// IEEE754 binary64 values, input values first:
//
//	offset  size  field
//	0       4     magic "TBIN"
//	4       2     version (1)
//	6       2     reserved (0)
//	8       4     input size
//	12      4     ideal size
//	16      8     record count
//
// The record count is written when a write session closes successfully.
// Until then it holds the all-ones sentinel, and such files are rejected
// when opened.
//
// # Quick Start
//
//	src, err := codec.Create("csv", codec.Config{Path: "xor.csv", InputSize: 2, IdealSize: 1})
//	if err != nil {
//	    return err
//	}
//	l := loader.NewBinaryDataLoader(src,
//	    loader.WithReporter(progress.NewLogReporter(logger.Get())))
//	stats, err := l.ImportToBinary("xor.tbin")
//
// # Key Packages
//
//	pkg/binfile      - Binary container reader, writer and mapped reader
//	pkg/codec        - Codec contract, registry and csv/jsonl/avro/sql/memory codecs
//	pkg/loader       - Import and export conversions
//	pkg/progress     - Progress reporter contract and reporters
//	pkg/compression  - Compressed streams for file codecs
//	pkg/storage      - Local and S3 staging of containers
//	pkg/config       - YAML job files
//	pkg/errors       - Structured error handling
//	pkg/logger       - Structured logging
//	pkg/metrics      - Prometheus collectors
//	internal/job     - End to end job runner
//	cmd/trainbin     - Command line interface
package trainbin
