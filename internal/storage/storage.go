package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	errs "github.com/Flowman/homeport/internal/errors"
	"github.com/Flowman/homeport/internal/fsys"
	"github.com/Flowman/homeport/internal/storage/storageapi"
	"github.com/Flowman/homeport/internal/storage/validation"
)

const (
	// DefaultContentType is used when content type detection fails.
	DefaultContentType = "application/octet-stream"

	// MetaSourceModified is the object metadata key carrying the source
	// file's modification time, RFC 3339 in UTC.
	MetaSourceModified = "source-modified"
)

// Client wraps the S3 API for the operations the migration performs:
// bucket ensure, bucket ACL management and object upload.
type Client struct {
	api    storageapi.S3API
	fs     fsys.Filesystem
	log    *zap.Logger
	region string
}

// UploadResult describes a completed upload.
type UploadResult struct {
	// Key is the object key that was written.
	Key string

	// ETag is the entity tag returned by S3, quotes stripped.
	ETag string

	// Size is the number of bytes uploaded.
	Size int64

	// Duration is the wall-clock time the upload took.
	Duration time.Duration
}

// New creates a storage client. Credentials flow through the SDK's
// default chain; options adjust region, endpoint and transport
// behavior. With WithAPI set, AWS configuration loading is skipped
// entirely.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &settings{
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.fs == nil {
		cfg.fs = fsys.NewOSFS("/")
	}
	if cfg.log == nil {
		cfg.log = zap.NewNop()
	}

	if cfg.api != nil {
		return &Client{api: cfg.api, fs: cfg.fs, log: cfg.log, region: cfg.region}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errs.NewError("storage.new", err)
	}

	if cfg.region != "" {
		awsCfg.Region = cfg.region
	} else if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}
	if cfg.maxRetries > 0 {
		awsCfg.RetryMaxAttempts = cfg.maxRetries
	}

	var s3Opts []func(*s3.Options)
	if cfg.endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.endpoint)
		})
	}
	if cfg.forcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if cfg.httpTimeout > 0 {
		httpClient := &http.Client{Timeout: cfg.httpTimeout}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	return &Client{
		api:    s3.NewFromConfig(awsCfg, s3Opts...),
		fs:     cfg.fs,
		log:    cfg.log,
		region: awsCfg.Region,
	}, nil
}

// API exposes the underlying S3 API, shared with collaborators that
// issue their own calls (the site broker).
func (c *Client) API() storageapi.S3API {
	return c.api
}

// Upload writes size bytes from reader to bucket/key in a single PUT.
// Content type defaults to extension-based detection on the key.
func (c *Client) Upload(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	size int64,
	opts ...UploadOption,
) (*UploadResult, error) {
	if bucket == "" {
		return nil, errs.NewError("storage.upload", errs.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("bucket name cannot be empty")
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, errs.NewError("storage.upload", errs.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage(err.Error())
	}
	if reader == nil {
		return nil, errs.NewError("storage.upload", errs.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("reader cannot be nil")
	}

	config := &uploadSettings{}
	for _, opt := range opts {
		opt(config)
	}
	if config.contentType == "" {
		config.contentType = c.detectContentType(key)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentType:   aws.String(config.contentType),
		ContentLength: aws.Int64(size),
	}
	if len(config.metadata) > 0 {
		input.Metadata = config.metadata
	}

	start := time.Now()
	out, err := c.api.PutObject(ctx, input)
	if err != nil {
		return nil, errs.NewError("storage.upload",
			fmt.Errorf("%w: %w", errs.ErrUploadFailed, convertAWSError(err))).
			WithBucket(bucket).
			WithKey(key)
	}

	result := &UploadResult{
		Key:      key,
		Size:     size,
		Duration: time.Since(start),
	}
	if out.ETag != nil {
		result.ETag = strings.Trim(*out.ETag, `"`)
	}

	c.log.Debug("object uploaded",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("size", size),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// UploadFile uploads a local file to bucket/key. The content type is
// sniffed from the file, and the source modification time is stamped
// as object metadata.
func (c *Client) UploadFile(
	ctx context.Context,
	bucket, key, path string,
	opts ...UploadOption,
) (*UploadResult, error) {
	if path == "" {
		return nil, errs.NewError("storage.uploadFile", errs.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("path cannot be empty")
	}

	info, err := c.fs.Stat(path)
	if err != nil {
		return nil, errs.NewError("storage.uploadFile", err).
			WithBucket(bucket).
			WithKey(key).
			WithPath(path)
	}
	if info.IsDir() {
		return nil, errs.NewError("storage.uploadFile", errs.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithPath(path).
			WithMessage("path points to a directory, not a file")
	}

	file, err := c.fs.Open(path)
	if err != nil {
		return nil, errs.NewError("storage.uploadFile", err).
			WithBucket(bucket).
			WithKey(key).
			WithPath(path)
	}
	defer func() { _ = file.Close() }()

	fileOpts := append([]UploadOption{
		WithContentType(c.detectContentType(path)),
		WithMetadata(map[string]string{
			MetaSourceModified: info.ModTime().UTC().Format(time.RFC3339),
		}),
	}, opts...)

	return c.Upload(ctx, bucket, key, file, info.Size(), fileOpts...)
}

// EnsureBucket makes sure the bucket exists, creating it when absent.
// Creation uses the client's region as the location constraint.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return errs.NewError("storage.ensureBucket", errs.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage(err.Error())
	}

	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		c.log.Debug("bucket exists", zap.String("bucket", bucket))
		return nil
	}
	if !isBucketNotFound(err) {
		return errs.NewError("storage.ensureBucket", convertAWSError(err)).WithBucket(bucket)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.api.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			// Lost a race with a concurrent run; the bucket is ours.
			return nil
		}
		return errs.NewError("storage.ensureBucket", convertAWSError(err)).WithBucket(bucket)
	}

	c.log.Info("bucket created",
		zap.String("bucket", bucket),
		zap.String("region", c.region))
	return nil
}

// detectContentType determines the content type using mimetype where
// possible, falling back to extension-based lookup when the path is
// not a readable local file.
func (c *Client) detectContentType(path string) string {
	info, err := c.fs.Stat(path)
	if err != nil || info.IsDir() {
		return detectContentTypeFromExtension(path)
	}

	file, err := c.fs.Open(path)
	if err != nil {
		return detectContentTypeFromExtension(path)
	}
	defer func() { _ = file.Close() }()

	buf := make([]byte, 512)
	n, _ := file.Read(buf)
	if n > 0 {
		if mt := mimetype.Detect(buf[:n]); mt != nil {
			return mt.String()
		}
	}

	return detectContentTypeFromExtension(path)
}

func detectContentTypeFromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return DefaultContentType
}

// convertAWSError maps AWS SDK errors to the tool's sentinel errors,
// keeping the SDK's own message (status, request id) as the cause.
func convertAWSError(err error) error {
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", errs.ErrBucketNotFound, err)
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return fmt.Errorf("%w: %s", errs.ErrBucketNotFound, err)
	}
	var alreadyExists *types.BucketAlreadyExists
	if errors.As(err, &alreadyExists) {
		return fmt.Errorf("%w: %s", errs.ErrBucketAlreadyExists, err)
	}

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "NoSuchBucket"):
		return fmt.Errorf("%w: %s", errs.ErrBucketNotFound, errMsg)
	case strings.Contains(errMsg, "BucketAlreadyExists"):
		return fmt.Errorf("%w: %s", errs.ErrBucketAlreadyExists, errMsg)
	case strings.Contains(errMsg, "AccessDenied"):
		return fmt.Errorf("%w: %s", errs.ErrAccessDenied, errMsg)
	}

	return err
}

// isBucketNotFound reports whether err means the bucket does not exist.
func isBucketNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "NoSuchBucket")
}
