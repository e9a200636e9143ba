package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/ajitpratap0/trainbin/pkg/errors"
	"github.com/ajitpratap0/trainbin/pkg/logger"
)

const (
	defaultPartSize    = 16 * 1024 * 1024
	defaultConcurrency = 4
)

// S3Client is the subset of the S3 API used for fetching
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Uploader is the subset of manager.Uploader used for publishing
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Stager fetches containers with GetObject and publishes them with the
// multipart upload manager
type S3Stager struct {
	client   S3Client
	uploader Uploader
	logger   *zap.Logger
}

// NewS3Stager loads the default AWS configuration for region and builds a stager
func NewS3Stager(ctx context.Context, region string) (*S3Stager, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(cfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = defaultPartSize
		u.Concurrency = defaultConcurrency
	})
	return NewS3StagerWithClients(client, uploader), nil
}

// NewS3StagerWithClients builds a stager over existing clients
func NewS3StagerWithClients(client S3Client, uploader Uploader) *S3Stager {
	return &S3Stager{
		client:   client,
		uploader: uploader,
		logger:   logger.Get().With(zap.String("stager", "s3")),
	}
}

// Fetch downloads loc to localPath
func (s *S3Stager) Fetch(ctx context.Context, loc Location, localPath string) error {
	if !loc.IsRemote() {
		return errors.New(errors.ErrorTypeConfig, "s3 stager needs an s3 location").
			WithDetail("location", loc.String())
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return errors.Wrap(err, errors.ErrorTypeIO, "object not found").WithDetail("location", loc.String())
		}
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to get object").WithDetail("location", loc.String())
	}
	defer resp.Body.Close()

	out, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create staging file").WithDetail("path", localPath)
	}
	tmp := out.Name()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to download object").WithDetail("location", loc.String())
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close staging file").WithDetail("path", localPath)
	}
	if err := os.Rename(tmp, localPath); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to move staged container").WithDetail("path", localPath)
	}

	s.logger.Debug("fetched container",
		zap.String("location", loc.String()),
		zap.String("path", localPath),
		zap.Int64("bytes", n))
	return nil
}

// Publish uploads localPath to loc
func (s *S3Stager) Publish(ctx context.Context, localPath string, loc Location) error {
	if !loc.IsRemote() {
		return errors.New(errors.ErrorTypeConfig, "s3 stager needs an s3 location").
			WithDetail("location", loc.String())
	}

	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to open staged container").WithDetail("path", localPath)
	}
	defer f.Close()

	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        f,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to upload container").WithDetail("location", loc.String())
	}

	s.logger.Debug("published container",
		zap.String("location", loc.String()),
		zap.String("path", localPath),
		zap.String("upload_location", out.Location))
	return nil
}
