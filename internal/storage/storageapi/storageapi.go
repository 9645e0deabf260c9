// Package storageapi defines the interface over the S3 operations the
// migration needs, to enable testing and mocking.
package storageapi

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 API the tool uses: object upload,
// bucket ensure and bucket ACL management.
type S3API interface {
	// PutObject uploads an object to S3.
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)

	// HeadBucket checks whether a bucket exists and is accessible.
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)

	// CreateBucket creates a new S3 bucket.
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)

	// GetBucketAcl retrieves a bucket's access control list.
	GetBucketAcl(ctx context.Context, params *s3.GetBucketAclInput, optFns ...func(*s3.Options)) (*s3.GetBucketAclOutput, error)

	// PutBucketAcl replaces a bucket's access control list.
	PutBucketAcl(ctx context.Context, params *s3.PutBucketAclInput, optFns ...func(*s3.Options)) (*s3.PutBucketAclOutput, error)
}

// Verify that the AWS S3 client implements our interface.
var _ S3API = (*s3.Client)(nil)
