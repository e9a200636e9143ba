// Package loader converts between a codec's external representation and the
// binary container. Both directions stream one record at a time through
// buffers allocated once per run.
package loader

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/trainbin/pkg/binfile"
	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/errors"
	"github.com/ajitpratap0/trainbin/pkg/logger"
	"github.com/ajitpratap0/trainbin/pkg/observability"
	"github.com/ajitpratap0/trainbin/pkg/progress"
)

// Interim progress messages
const (
	MsgImporting = "Importing..."
	MsgExporting = "Exporting..."
)

const (
	importStartPrefix = "Importing to binary file: "
	importDonePrefix  = "Done importing to binary file: "
	exportStartPrefix = "Exporting binary file: "
	exportDonePrefix  = "Done exporting binary file: "

	tracerName = "trainbin/loader"
)

// Stats summarises one conversion
type Stats struct {
	Records   uint64
	InputSize uint32
	IdealSize uint32
	Elapsed   time.Duration
}

// BinaryDataLoader moves records between a codec and a binary container
type BinaryDataLoader struct {
	codec    codec.DataSetCodec
	reporter progress.Reporter
	interval uint64
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Option configures a BinaryDataLoader
type Option func(*BinaryDataLoader)

// WithReporter sets the progress reporter; nil restores the no-op reporter
func WithReporter(r progress.Reporter) Option {
	return func(l *BinaryDataLoader) {
		l.SetReporter(r)
	}
}

// WithUpdateInterval sets the number of records between interim reports.
// Zero keeps the default.
func WithUpdateInterval(n uint64) Option {
	return func(l *BinaryDataLoader) {
		if n > 0 {
			l.interval = n
		}
	}
}

// WithLogger sets the logger used for start and finish messages
func WithLogger(log *zap.Logger) Option {
	return func(l *BinaryDataLoader) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithTracer sets the tracer used for conversion spans
func WithTracer(t trace.Tracer) Option {
	return func(l *BinaryDataLoader) {
		if t != nil {
			l.tracer = t
		}
	}
}

// NewBinaryDataLoader creates a loader over c
func NewBinaryDataLoader(c codec.DataSetCodec, opts ...Option) *BinaryDataLoader {
	l := &BinaryDataLoader{
		codec:    c,
		reporter: progress.Nop,
		interval: progress.DefaultInterval,
		logger:   logger.Get(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Codec returns the codec the loader converts through
func (l *BinaryDataLoader) Codec() codec.DataSetCodec {
	return l.codec
}

// Reporter returns the current progress reporter
func (l *BinaryDataLoader) Reporter() progress.Reporter {
	return l.reporter
}

// SetReporter replaces the progress reporter; nil restores the no-op reporter
func (l *BinaryDataLoader) SetReporter(r progress.Reporter) {
	if r == nil {
		r = progress.Nop
	}
	l.reporter = r
}

// UpdateInterval returns the number of records between interim reports
func (l *BinaryDataLoader) UpdateInterval() uint64 {
	return l.interval
}

// ImportToBinary reads every record from the codec and writes them to a new
// container at path. A failed import leaves an unfinalized container behind.
func (l *BinaryDataLoader) ImportToBinary(path string) (stats Stats, err error) {
	start := time.Now()
	inputSize, idealSize := l.codec.InputSize(), l.codec.IdealSize()
	stats.InputSize, stats.IdealSize = inputSize, idealSize

	_, span := l.tracer.Start(context.Background(), "loader.import", trace.WithAttributes(
		attribute.String("binary_file", path),
		attribute.Int64("input_size", int64(inputSize)),
		attribute.Int64("ideal_size", int64(idealSize)),
	))
	log := l.logger.With(zap.String(string(logger.BinaryFileKey), path))
	defer func() {
		stats.Elapsed = time.Since(start)
		l.finish(span, log, "import", stats, err)
	}()

	l.reporter.Report(0, 0, importStartPrefix+path)
	log.Info("importing to binary file",
		zap.Uint32("input_size", inputSize),
		zap.Uint32("ideal_size", idealSize))

	file, err := binfile.Create(path, inputSize, idealSize)
	if err != nil {
		return stats, abort(err, l.codec.Close())
	}
	if err := l.codec.PrepareRead(); err != nil {
		return stats, abort(err, file.Abort(), l.codec.Close())
	}

	input := make([]float64, inputSize)
	ideal := make([]float64, idealSize)
	for {
		ok, err := l.codec.Read(input, ideal)
		if err != nil {
			return stats, abort(err, file.Abort(), l.codec.Close())
		}
		if !ok {
			break
		}
		if err := file.Append(input); err != nil {
			return stats, abort(err, file.Abort(), l.codec.Close())
		}
		if err := file.Append(ideal); err != nil {
			return stats, abort(err, file.Abort(), l.codec.Close())
		}
		stats.Records++
		if stats.Records%l.interval == 0 {
			l.reporter.Report(0, stats.Records, MsgImporting)
		}
	}

	if err := file.Close(); err != nil {
		return stats, abort(err, l.codec.Close())
	}
	if err := l.codec.Close(); err != nil {
		return stats, err
	}

	l.reporter.Report(stats.Records, stats.Records, importDonePrefix+path)
	return stats, nil
}

// ExportFromBinary reads every record of the container at path and hands
// them to the codec
func (l *BinaryDataLoader) ExportFromBinary(path string) (stats Stats, err error) {
	start := time.Now()

	_, span := l.tracer.Start(context.Background(), "loader.export", trace.WithAttributes(
		attribute.String("binary_file", path),
	))
	log := l.logger.With(zap.String(string(logger.BinaryFileKey), path))
	defer func() {
		stats.Elapsed = time.Since(start)
		l.finish(span, log, "export", stats, err)
	}()

	l.reporter.Report(0, 0, exportStartPrefix+path)

	file, err := binfile.Open(path)
	if err != nil {
		return stats, abort(err, l.codec.Close())
	}

	inputSize, idealSize := file.InputSize(), file.IdealSize()
	total := file.RecordCount()
	stats.InputSize, stats.IdealSize = inputSize, idealSize
	span.SetAttributes(
		attribute.Int64("input_size", int64(inputSize)),
		attribute.Int64("ideal_size", int64(idealSize)),
		attribute.Int64("record_count", int64(total)), //nolint:gosec // counts are bounded by the file length
	)
	log.Info("exporting binary file",
		zap.Uint32("input_size", inputSize),
		zap.Uint32("ideal_size", idealSize),
		zap.Uint64("record_count", total))

	if err := l.codec.PrepareWrite(total, inputSize, idealSize); err != nil {
		return stats, abort(err, file.Close(), l.codec.Close())
	}

	input := make([]float64, inputSize)
	ideal := make([]float64, idealSize)
	for stats.Records < total {
		if err := readVector(file, input); err != nil {
			return stats, abort(err, file.Close(), l.codec.Close())
		}
		if err := readVector(file, ideal); err != nil {
			return stats, abort(err, file.Close(), l.codec.Close())
		}
		if err := l.codec.Write(input, ideal); err != nil {
			return stats, abort(err, file.Close(), l.codec.Close())
		}
		stats.Records++
		if stats.Records%l.interval == 0 {
			l.reporter.Report(total, stats.Records, MsgExporting)
		}
	}

	if err := file.Close(); err != nil {
		return stats, abort(err, l.codec.Close())
	}
	if err := l.codec.Close(); err != nil {
		return stats, err
	}

	l.reporter.Report(total, total, exportDonePrefix+path)
	return stats, nil
}

// abort returns err joined with the failures among the release results
func abort(err error, released ...error) error {
	errs := []error{err}
	for _, r := range released {
		if r != nil {
			errs = append(errs, r)
		}
	}
	if len(errs) == 1 {
		return err
	}
	return errors.Join(errs...)
}

func readVector(file *binfile.File, dst []float64) error {
	for i := range dst {
		v, err := file.ReadValue()
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

func (l *BinaryDataLoader) finish(span trace.Span, log *zap.Logger, direction string, stats Stats, err error) {
	span.SetAttributes(attribute.Int64("records", int64(stats.Records))) //nolint:gosec
	observability.EndSpan(span, err)

	fields := []zap.Field{
		zap.String("direction", direction),
		zap.Uint64("records", stats.Records),
		zap.Duration("elapsed", stats.Elapsed),
	}
	if err != nil {
		log.Error("conversion failed", append(fields, zap.Error(err))...)
		return
	}
	log.Info("conversion finished", fields...)
}
