package errors

import (
	"context"
	"errors"
	"net"
)

// ErrorCode classifies an object-store failure.
// Error codes are string-based for debuggability and use as metric labels.
type ErrorCode string

const (
	// CodeNone is reported for a nil error.
	CodeNone ErrorCode = ""

	// CodeNotFound indicates a requested object or bucket does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeForbidden indicates the caller lacks permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeTimeout indicates an operation exceeded a configured time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates the service throttled the request.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeNetwork indicates a connection-level failure.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeUnavailable indicates the service answered with a server-side failure.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// CodeUnknown indicates an unclassified error.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// CodeOf classifies err. Sentinels of this package are checked first,
// then context deadlines and network errors.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, ErrObjectNotFound), errors.Is(err, ErrBucketNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAccessDenied):
		return CodeForbidden
	case errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidBucketName),
		errors.Is(err, ErrInvalidObjectKey), errors.Is(err, ErrInvalidRange):
		return CodeInvalidInput
	case errors.Is(err, ErrTooManyRequests):
		return CodeRateLimit
	case errors.Is(err, ErrServer):
		return CodeUnavailable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CodeTimeout
		}
		return CodeNetwork
	}

	return CodeUnknown
}
