// Package archive stores lineage snapshots in an S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

var (
	_ ports.SnapshotArchive = (*S3Archive)(nil)
	_ ports.HealthChecker   = (*S3Archive)(nil)
)

// objectAPI is the slice of the S3 client the archive needs.
type objectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Config configures the archive.
type S3Config struct {
	Client objectAPI
	Bucket string
	Logger *slog.Logger
}

// S3Archive writes snapshots as objects. Keys are create-only.
type S3Archive struct {
	client objectAPI
	bucket string
	logger *slog.Logger
}

// NewS3Archive creates an archive. It panics if Client is nil or Bucket is empty.
func NewS3Archive(cfg S3Config) *S3Archive {
	if cfg.Client == nil {
		panic("archive: s3 client is required")
	}

	if cfg.Bucket == "" {
		panic("archive: bucket is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &S3Archive{
		client: cfg.Client,
		bucket: cfg.Bucket,
		logger: cfg.Logger.With(slog.String("component", "archive")),
	}
}

// NewS3Client creates an S3 client. Path-style addressing and an endpoint
// override are needed for MinIO and LocalStack.
func NewS3Client(cfg aws.Config, endpoint *string, pathStyle bool) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle

		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})
}

// Put implements ports.SnapshotArchive.
// Returns domain.ErrConflict if the key already exists.
func (a *S3Archive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	// S3 has no create-only put; emulate it with a head first.
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &a.bucket, Key: &key})
	switch {
	case err == nil:
		return domain.NewConflictError("snapshot", "key "+key+" already exists")
	case !isNotFound(err):
		return domain.NewUnavailableError("archive", err.Error())
	}

	input := &s3.PutObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	}

	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return domain.NewUnavailableError("archive", fmt.Sprintf("putting %s: %v", key, err))
	}

	logging.FromContextOr(ctx, a.logger).Debug("snapshot archived",
		slog.String("bucket", a.bucket),
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)

	return nil
}

// Name implements ports.HealthChecker.
func (a *S3Archive) Name() string { return "archive:s3" }

// Check implements ports.HealthChecker.
func (a *S3Archive) Check(ctx context.Context) error {
	if _, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &a.bucket}); err != nil {
		return domain.NewUnavailableError("archive", err.Error())
	}

	return nil
}

// isNotFound reports whether err is a missing-object response.
// HeadObject has no body, so the error code is all S3 gives back.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.ErrorCode() {
	case "NotFound", "NoSuchKey", "404":
		return true
	default:
		return false
	}
}
