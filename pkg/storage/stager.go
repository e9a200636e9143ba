package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/trainbin/pkg/errors"
)

// Stager moves container files between a location and the local filesystem
type Stager interface {
	// Fetch copies the object at loc to localPath
	Fetch(ctx context.Context, loc Location, localPath string) error
	// Publish copies localPath to loc
	Publish(ctx context.Context, localPath string, loc Location) error
}

// LocalStager copies between local paths. Publish writes next to the
// destination and renames, so readers never observe a partial container.
type LocalStager struct{}

// NewLocalStager creates a LocalStager
func NewLocalStager() *LocalStager {
	return &LocalStager{}
}

// Fetch copies loc.Path to localPath
func (s *LocalStager) Fetch(ctx context.Context, loc Location, localPath string) error {
	if loc.IsRemote() {
		return errors.New(errors.ErrorTypeConfig, "local stager cannot fetch a remote location").
			WithDetail("location", loc.String())
	}
	return copyFile(ctx, loc.Path, localPath)
}

// Publish copies localPath to loc.Path
func (s *LocalStager) Publish(ctx context.Context, localPath string, loc Location) error {
	if loc.IsRemote() {
		return errors.New(errors.ErrorTypeConfig, "local stager cannot publish to a remote location").
			WithDetail("location", loc.String())
	}
	return copyFile(ctx, localPath, loc.Path)
}

func copyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to open staged source").WithDetail("path", src)
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create staging file").WithDetail("path", dst)
	}
	tmp := out.Name()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to copy container").WithDetail("path", dst)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close staging file").WithDetail("path", dst)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to move staged container").WithDetail("path", dst)
	}
	return nil
}
