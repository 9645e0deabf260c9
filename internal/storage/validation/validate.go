// Package validation holds the input validation shared by the storage
// client and the site resolver: S3 bucket naming rules and object key
// checks, applied before anything is sent to AWS.
package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ValidateBucketName validates that a bucket name is DNS-compliant
// according to AWS S3 rules.
func ValidateBucketName(bucket string) error {
	if err := validateBucketNameBasics(bucket); err != nil {
		return err
	}
	if err := validateBucketNameCharacters(bucket); err != nil {
		return err
	}
	return validateBucketNameStructure(bucket)
}

// ValidateObjectKey validates an object key: non-empty, within the S3
// length limit, free of control characters and traversal sequences.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.New("object key cannot be empty")
	}
	if len(key) > 1024 {
		return errors.New("object key cannot exceed 1024 bytes")
	}
	if strings.HasPrefix(key, "/") {
		return errors.New("object key cannot start with a slash")
	}
	if hasPathTraversal(key) {
		return errors.New("object key cannot contain path traversal sequences")
	}
	if hasControlCharacters(key) {
		return errors.New("object key cannot contain control characters")
	}
	return nil
}

func validateBucketNameBasics(bucket string) error {
	if bucket == "" {
		return errors.New("bucket name cannot be empty")
	}
	if len(bucket) < 3 || len(bucket) > 63 {
		return errors.New("bucket name must be between 3 and 63 characters long")
	}
	return nil
}

func validateBucketNameCharacters(bucket string) error {
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.New("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}
	return nil
}

func validateBucketNameStructure(bucket string) error {
	first, last := bucket[0], bucket[len(bucket)-1]
	if first == '-' || first == '.' || last == '-' || last == '.' {
		return errors.New("bucket name cannot start or end with a hyphen or dot")
	}
	if strings.Contains(bucket, "..") {
		return errors.New("bucket name cannot contain consecutive dots")
	}
	if isIPAddress(bucket) {
		return errors.New("bucket name cannot be formatted as an IP address")
	}
	return nil
}

func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// isIPAddress checks if a string is formatted as an IPv4 address.
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if len(part) == 0 || len(part) > 3 {
			return false
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}
	return true
}

func hasPathTraversal(key string) bool {
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

func hasControlCharacters(key string) bool {
	for _, char := range key {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
