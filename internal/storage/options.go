package storage

import (
	"time"

	"go.uber.org/zap"

	"github.com/Flowman/homeport/internal/fsys"
	"github.com/Flowman/homeport/internal/storage/storageapi"
)

// settings collects the client configuration assembled from options.
type settings struct {
	region         string
	endpoint       string
	forcePathStyle bool
	maxRetries     int
	httpTimeout    time.Duration
	fs             fsys.Filesystem
	log            *zap.Logger
	api            storageapi.S3API
}

// Option configures the storage client.
type Option func(*settings)

// WithRegion sets the AWS region. If not specified, the region from
// the default credential chain is used, falling back to us-east-1.
func WithRegion(region string) Option {
	return func(s *settings) {
		s.region = region
	}
}

// WithEndpoint sets a custom S3 endpoint URL. This is useful for
// S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) {
		s.endpoint = endpoint
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted
// style. Required for most S3-compatible services.
func WithForcePathStyle(force bool) Option {
	return func(s *settings) {
		s.forcePathStyle = force
	}
}

// WithMaxRetries sets the maximum number of SDK retry attempts for
// failed requests. Default is 3.
func WithMaxRetries(maxRetries int) Option {
	return func(s *settings) {
		s.maxRetries = maxRetries
	}
}

// WithHTTPTimeout sets the timeout for individual S3 requests.
// Default is no timeout.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.httpTimeout = timeout
	}
}

// WithFilesystem sets the filesystem used to read files for upload.
// Defaults to the OS filesystem rooted at /.
func WithFilesystem(fs fsys.Filesystem) Option {
	return func(s *settings) {
		s.fs = fs
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithAPI injects a static S3 API implementation, bypassing AWS
// configuration loading entirely. This is primarily used for testing
// with mocked clients.
func WithAPI(api storageapi.S3API) Option {
	return func(s *settings) {
		s.api = api
	}
}

// uploadSettings collects per-upload configuration.
type uploadSettings struct {
	contentType string
	metadata    map[string]string
}

// UploadOption configures a single upload.
type UploadOption func(*uploadSettings)

// WithContentType sets the content type for the upload, overriding
// detection.
func WithContentType(contentType string) UploadOption {
	return func(u *uploadSettings) {
		u.contentType = contentType
	}
}

// WithMetadata merges metadata into the uploaded object.
func WithMetadata(metadata map[string]string) UploadOption {
	return func(u *uploadSettings) {
		if u.metadata == nil {
			u.metadata = make(map[string]string)
		}
		for k, v := range metadata {
			u.metadata[k] = v
		}
	}
}
