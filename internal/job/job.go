// Package job runs one configured conversion end to end. It stages the
// binary container when it lives outside the local filesystem, builds the
// codec from the registry, wires progress reporting and records the outcome
// in the conversion metrics.
//
// # Basic Usage
//
//	j, err := config.Load("xor.yaml")
//	if err != nil {
//	    return err
//	}
//	stats, err := job.Run(ctx, j, job.Options{})
//
// Remote containers (s3://bucket/key) are fetched before an export and
// published after a successful import. A failed import is never published.
package job

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/trainbin/pkg/codec"
	"github.com/ajitpratap0/trainbin/pkg/config"
	"github.com/ajitpratap0/trainbin/pkg/errors"
	"github.com/ajitpratap0/trainbin/pkg/loader"
	"github.com/ajitpratap0/trainbin/pkg/logger"
	"github.com/ajitpratap0/trainbin/pkg/metrics"
	"github.com/ajitpratap0/trainbin/pkg/progress"
	"github.com/ajitpratap0/trainbin/pkg/storage"
)

// Options carries collaborators that are not part of the job file
type Options struct {
	// Stager overrides the stager chosen from the binary file location
	Stager storage.Stager
	// Logger replaces the context logger
	Logger *zap.Logger
	// Tracer replaces the global tracer
	Tracer trace.Tracer
	// Reporters receive progress in addition to the configured ones
	Reporters []progress.Reporter
}

// Run executes job and returns the loader statistics
func Run(ctx context.Context, job *config.Job, opts Options) (loader.Stats, error) {
	if job == nil {
		return loader.Stats{}, errors.New(errors.ErrorTypeConfig, "job is nil")
	}
	if err := job.Validate(); err != nil {
		return loader.Stats{}, err
	}

	id := jobID(job)
	ctx = logger.NewContext(ctx, logger.JobIDKey, id)
	ctx = logger.NewContext(ctx, logger.CodecKey, job.Codec.Name)
	log := opts.Logger
	if log == nil {
		log = logger.WithContext(ctx)
	} else {
		log = log.With(zap.String(string(logger.JobIDKey), id), zap.String(string(logger.CodecKey), job.Codec.Name))
	}

	loc, err := storage.ParseLocation(job.BinaryFile)
	if err != nil {
		return loader.Stats{}, err
	}

	stager, err := selectStager(ctx, job, loc, opts.Stager)
	if err != nil {
		return loader.Stats{}, err
	}

	path := loc.Path
	if stager != nil {
		workDir, err := os.MkdirTemp(job.Storage.TempDir, "trainbin-*")
		if err != nil {
			return loader.Stats{}, errors.Wrap(err, errors.ErrorTypeIO, "failed to create staging directory")
		}
		if job.Storage.KeepStaged {
			log.Info("keeping staged files", zap.String("dir", workDir))
		} else {
			defer func() {
				if err := os.RemoveAll(workDir); err != nil {
					log.Warn("failed to remove staging directory", zap.String("dir", workDir), zap.Error(err))
				}
			}()
		}
		path = filepath.Join(workDir, loc.Base())
	}

	if job.Direction == config.DirectionExport && stager != nil {
		log.Info("fetching binary file", zap.String("location", loc.String()))
		if err := stager.Fetch(ctx, loc, path); err != nil {
			return loader.Stats{}, err
		}
	}

	// the conversion itself is not cancellable
	if err := ctx.Err(); err != nil {
		return loader.Stats{}, err
	}

	c, err := codec.Create(job.Codec.Name, job.Codec.Config)
	if err != nil {
		return loader.Stats{}, err
	}

	direction := metrics.Direction(job.Direction)
	l := loader.NewBinaryDataLoader(c,
		loader.WithReporter(buildReporter(job, direction, log, opts.Reporters)),
		loader.WithUpdateInterval(job.Progress.Interval),
		loader.WithLogger(log),
		loader.WithTracer(opts.Tracer),
	)

	var stats loader.Stats
	switch job.Direction {
	case config.DirectionImport:
		stats, err = l.ImportToBinary(path)
	case config.DirectionExport:
		stats, err = l.ExportFromBinary(path)
	}
	metrics.ObserveConversion(direction, err, stats.Elapsed)
	if err != nil {
		return stats, err
	}

	if job.Direction == config.DirectionImport && stager != nil {
		log.Info("publishing binary file", zap.String("location", loc.String()))
		if err := stager.Publish(ctx, path, loc); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func selectStager(ctx context.Context, job *config.Job, loc storage.Location, override storage.Stager) (storage.Stager, error) {
	switch {
	case override != nil:
		return override, nil
	case loc.IsRemote():
		s3, err := storage.NewS3Stager(ctx, job.Storage.Region)
		if err != nil {
			return nil, err
		}
		return s3, nil
	case job.Storage.TempDir != "":
		return storage.NewLocalStager(), nil
	}
	return nil, nil
}

func buildReporter(job *config.Job, direction metrics.Direction, log *zap.Logger, extra []progress.Reporter) progress.Reporter {
	reporters := make([]progress.Reporter, 0, len(extra)+2)
	if job.Progress.Log {
		reporters = append(reporters, progress.NewLogReporter(log))
	}
	if job.Progress.Metrics {
		reporters = append(reporters, metrics.NewReporter(direction))
	}
	reporters = append(reporters, extra...)
	return progress.Multi(reporters...)
}

func jobID(job *config.Job) string {
	if job.Name != "" {
		return job.Name
	}
	return string(job.Direction) + "-" + strconv.FormatInt(time.Now().UnixNano(), 36)
}
