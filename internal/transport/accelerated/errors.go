package accelerated

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
)

// classify wraps err with the matching sentinel while keeping the minio
// error reachable through errors.As. Unrecognised errors are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if sentinel := sentinelFor(err); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

// translate converts a minio error into an operation-scoped error.
func translate(op, bucket, key string, err error) error {
	return s3errors.NewObjectError(op, bucket, key, classify(err))
}

func sentinelFor(err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchKey", "NotFound":
			return s3errors.ErrObjectNotFound
		case "NoSuchBucket":
			return s3errors.ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			return s3errors.ErrAccessDenied
		case "InvalidRange":
			return s3errors.ErrInvalidRange
		case "SlowDown", "Throttling", "RequestLimitExceeded", "TooManyRequests":
			return s3errors.ErrTooManyRequests
		}

		switch status := resp.StatusCode; {
		case status == http.StatusNotFound:
			return s3errors.ErrObjectNotFound
		case status == http.StatusForbidden:
			return s3errors.ErrAccessDenied
		case status == http.StatusRequestedRangeNotSatisfiable:
			return s3errors.ErrInvalidRange
		case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
			return s3errors.ErrTooManyRequests
		case status >= http.StatusInternalServerError:
			return s3errors.ErrServer
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return s3errors.ErrTimeout
	}

	return nil
}
