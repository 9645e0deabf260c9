// Package testutil provides test utilities and mocks for the storage
// layer. It is internal and only used by tests.
package testutil

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Flowman/homeport/internal/storage/storageapi"
)

// MockS3Client is a mock implementation of the storageapi.S3API
// interface. Each operation is customizable through a function field;
// unset fields return empty successful responses.
type MockS3Client struct {
	PutObjectFunc    func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucketFunc   func(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucketFunc func(context.Context, *s3.CreateBucketInput, ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	GetBucketAclFunc func(context.Context, *s3.GetBucketAclInput, ...func(*s3.Options)) (*s3.GetBucketAclOutput, error)
	PutBucketAclFunc func(context.Context, *s3.PutBucketAclInput, ...func(*s3.Options)) (*s3.PutBucketAclOutput, error)
}

// PutObject mocks the S3 PutObject operation.
func (m *MockS3Client) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

// HeadBucket mocks the S3 HeadBucket operation.
func (m *MockS3Client) HeadBucket(
	ctx context.Context,
	params *s3.HeadBucketInput,
	optFns ...func(*s3.Options),
) (*s3.HeadBucketOutput, error) {
	if m.HeadBucketFunc != nil {
		return m.HeadBucketFunc(ctx, params, optFns...)
	}
	return &s3.HeadBucketOutput{}, nil
}

// CreateBucket mocks the S3 CreateBucket operation.
func (m *MockS3Client) CreateBucket(
	ctx context.Context,
	params *s3.CreateBucketInput,
	optFns ...func(*s3.Options),
) (*s3.CreateBucketOutput, error) {
	if m.CreateBucketFunc != nil {
		return m.CreateBucketFunc(ctx, params, optFns...)
	}
	return &s3.CreateBucketOutput{}, nil
}

// GetBucketAcl mocks the S3 GetBucketAcl operation.
func (m *MockS3Client) GetBucketAcl(
	ctx context.Context,
	params *s3.GetBucketAclInput,
	optFns ...func(*s3.Options),
) (*s3.GetBucketAclOutput, error) {
	if m.GetBucketAclFunc != nil {
		return m.GetBucketAclFunc(ctx, params, optFns...)
	}
	return &s3.GetBucketAclOutput{}, nil
}

// PutBucketAcl mocks the S3 PutBucketAcl operation.
func (m *MockS3Client) PutBucketAcl(
	ctx context.Context,
	params *s3.PutBucketAclInput,
	optFns ...func(*s3.Options),
) (*s3.PutBucketAclOutput, error) {
	if m.PutBucketAclFunc != nil {
		return m.PutBucketAclFunc(ctx, params, optFns...)
	}
	return &s3.PutBucketAclOutput{}, nil
}

// Ensure MockS3Client implements storageapi.S3API.
var _ storageapi.S3API = (*MockS3Client)(nil)
