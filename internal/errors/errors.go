// Package errors provides error types and handling for migration operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a migration operation error with context about what failed.
// It wraps the underlying filesystem or AWS SDK error with additional context
// for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "scan", "upload", "grant")
	Op string

	// User is the identity being migrated (if applicable)
	User string

	// Path is the local filesystem path involved (if applicable)
	Path string

	// Bucket is the destination bucket name (if applicable)
	Bucket string

	// Key is the destination object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	msg := "homeport." + e.Op
	if e.User != "" {
		msg += " user " + e.User
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Bucket != "" && e.Key != "" {
		msg += fmt.Sprintf(" %s/%s", e.Bucket, e.Key)
	} else if e.Bucket != "" {
		msg += " bucket " + e.Bucket
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithUser adds identity context to an existing error.
func (e *Error) WithUser(user string) *Error {
	e.User = user
	return e
}

// WithPath adds local path context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewUserError creates a new Error with identity context.
func NewUserError(op, user string, err error) *Error {
	return &Error{
		Op:   op,
		User: user,
		Err:  err,
	}
}

// NewPathError creates a new Error with local path context.
func NewPathError(op, path string, err error) *Error {
	return &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// Sentinel errors for common migration failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("homeport: invalid input")

	// ErrRosterMalformed indicates that a roster row could not be parsed
	ErrRosterMalformed = errors.New("homeport: malformed roster row")

	// ErrSiteInvalid indicates that no valid destination site could be derived
	ErrSiteInvalid = errors.New("homeport: invalid destination site")

	// ErrBucketNotFound indicates that the destination bucket does not exist
	ErrBucketNotFound = errors.New("homeport: bucket not found")

	// ErrBucketAlreadyExists indicates that the destination bucket already exists
	ErrBucketAlreadyExists = errors.New("homeport: bucket already exists")

	// ErrAccessDenied indicates that access to the destination is denied
	ErrAccessDenied = errors.New("homeport: access denied")

	// ErrUploadFailed indicates that an object upload failed
	ErrUploadFailed = errors.New("homeport: upload failed")

	// ErrRenameFailed indicates that an in-place rename failed
	ErrRenameFailed = errors.New("homeport: rename failed")

	// ErrReportWrite indicates that the remediation report could not be written
	ErrReportWrite = errors.New("homeport: report write failed")
)

// IsInvalidInput checks if an error indicates invalid input.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRosterMalformed checks if an error indicates a malformed roster row.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsRosterMalformed(err error) bool {
	return errors.Is(err, ErrRosterMalformed)
}

// IsSiteInvalid checks if an error indicates an invalid destination site.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsSiteInvalid(err error) bool {
	return errors.Is(err, ErrSiteInvalid)
}

// IsBucketNotFound checks if an error indicates a missing destination bucket.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsRenameFailed checks if an error indicates a failed rename.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsRenameFailed(err error) bool {
	return errors.Is(err, ErrRenameFailed)
}

// IsReportWrite checks if an error indicates a report write failure.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsReportWrite(err error) bool {
	return errors.Is(err, ErrReportWrite)
}
