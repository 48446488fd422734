package validation

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

const (
	maxKeyLength        = 1024
	maxMetadataKeyLen   = 128
	maxMetadataValueLen = 2048

	// MaxPartNumber is the highest part number a multipart upload accepts.
	MaxPartNumber = 10000
)

// ValidateBucketName validates that a bucket name is DNS-compliant.
// Returns ErrInvalidBucketName if the bucket name is invalid.
func ValidateBucketName(bucket string) error {
	if err := validateBucketNameBasics(bucket); err != nil {
		return err
	}

	if err := validateBucketNameCharacters(bucket); err != nil {
		return err
	}

	return validateBucketNameStructure(bucket)
}

// ValidateObjectKey validates that an object key is non-empty, bounded and free
// of traversal segments and control characters.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithMessage("object key cannot be empty")
	}

	if len(key) > maxKeyLength {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot exceed 1024 bytes")
	}

	if hasTraversalSegment(key) {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain path traversal segments")
	}

	if hasControlCharacters(key) {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain control characters")
	}

	return nil
}

// ValidateObject validates a bucket and key pair.
func ValidateObject(bucket, key string) error {
	if err := ValidateBucketName(bucket); err != nil {
		return err
	}
	return ValidateObjectKey(key)
}

// ValidateRange validates an inclusive byte range. A nil range is valid.
func ValidateRange(rng *s3types.ByteRange) error {
	if rng == nil {
		return nil
	}
	if rng.Start < 0 || rng.End < rng.Start {
		return errors.NewError("validateRange", errors.ErrInvalidRange).
			WithMessage(fmt.Sprintf("range [%d, %d] is not a valid inclusive range", rng.Start, rng.End))
	}
	return nil
}

// ValidatePart validates the multipart identifiers of an UploadPart call.
func ValidatePart(uploadID string, partNumber int32) error {
	if uploadID == "" {
		return errors.NewError("validatePart", errors.ErrInvalidInput).
			WithMessage("upload ID cannot be empty")
	}
	if partNumber < 1 || partNumber > MaxPartNumber {
		return errors.NewError("validatePart", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("part number must be between 1 and %d", MaxPartNumber))
	}
	return nil
}

// ValidateMetadata validates user metadata keys and values.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(key); err != nil {
			return err
		}
		if err := validateMetadataValue(value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRegion validates that a region identifier is present and well formed.
func ValidateRegion(region string) error {
	if region == "" {
		return errors.NewError("validateRegion", errors.ErrInvalidConfig).
			WithMessage("region cannot be empty")
	}
	for _, char := range region {
		if !(char >= 'a' && char <= 'z') && !(char >= '0' && char <= '9') && char != '-' {
			return errors.NewError("validateRegion", errors.ErrInvalidConfig).
				WithKey(region).
				WithMessage("region can only contain lowercase letters, numbers, and hyphens")
		}
	}
	return nil
}

// ValidateTimeout validates that a timeout is not negative. Zero disables the timeout.
func ValidateTimeout(name string, timeout time.Duration) error {
	if timeout < 0 {
		return errors.NewError("validateTimeout", errors.ErrInvalidConfig).
			WithKey(name).
			WithMessage(fmt.Sprintf("timeout cannot be negative, got %s", timeout))
	}
	return nil
}

// ValidateEndpoint validates an endpoint override. A nil endpoint is valid.
func ValidateEndpoint(endpoint *url.URL) error {
	if endpoint == nil {
		return nil
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return errors.NewError("validateEndpoint", errors.ErrInvalidConfig).
			WithKey(endpoint.String()).
			WithMessage("endpoint scheme must be http or https")
	}
	if endpoint.Host == "" {
		return errors.NewError("validateEndpoint", errors.ErrInvalidConfig).
			WithKey(endpoint.String()).
			WithMessage("endpoint must include a host")
	}
	return nil
}

// validateBucketNameBasics validates basic bucket name requirements
func validateBucketNameBasics(bucket string) error {
	if bucket == "" {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithMessage("bucket name cannot be empty")
	}

	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name must be between 3 and 63 characters long")
	}

	return nil
}

// validateBucketNameCharacters validates allowed characters in bucket names
func validateBucketNameCharacters(bucket string) error {
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
				WithBucket(bucket).
				WithMessage("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	return nil
}

// validateBucketNameStructure validates bucket name structural requirements
func validateBucketNameStructure(bucket string) error {
	if bucket[0] == '-' || bucket[0] == '.' || bucket[len(bucket)-1] == '-' || bucket[len(bucket)-1] == '.' {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot start or end with a hyphen or dot")
	}

	if isIPAddress(bucket) {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot be formatted as an IP address")
	}

	if strings.Contains(bucket, "..") {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain two adjacent periods")
	}

	return nil
}

// isValidBucketChar checks if a character is valid in a bucket name
func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// isIPAddress checks if a string is formatted as an IPv4 address
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if part == "" || len(part) > 3 {
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

// hasTraversalSegment reports whether any "/"-separated segment of key is "..".
func hasTraversalSegment(key string) bool {
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

// hasControlCharacters checks for control characters in the key
func hasControlCharacters(key string) bool {
	for _, char := range key {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}

// validateMetadataKey validates a metadata key
func validateMetadataKey(key string) error {
	if key == "" {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot be empty")
	}

	if len(key) > maxMetadataKeyLen {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot exceed 128 characters")
	}

	for _, prefix := range []string{"aws:", "x-amz-"} {
		if strings.HasPrefix(strings.ToLower(key), prefix) {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
		}
	}

	for _, char := range key {
		if char <= ' ' || char > '~' {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata key can only contain printable ASCII characters")
		}
	}

	return nil
}

// validateMetadataValue validates a metadata value
func validateMetadataValue(value string) error {
	if len(value) > maxMetadataValueLen {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata value cannot exceed 2048 characters")
	}

	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\t' {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}

	return nil
}
