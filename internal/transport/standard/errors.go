package standard

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
)

// classify wraps err with the matching sentinel while keeping the SDK error
// reachable through errors.As. Unrecognised errors are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if sentinel := sentinelFor(err); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

// translate converts an SDK error into an operation-scoped error.
func translate(op, bucket, key string, err error) error {
	return s3errors.NewObjectError(op, bucket, key, classify(err))
}

func sentinelFor(err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return s3errors.ErrObjectNotFound
	case errors.As(err, &noSuchBucket):
		return s3errors.ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return s3errors.ErrObjectNotFound
		case "NoSuchBucket":
			return s3errors.ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			return s3errors.ErrAccessDenied
		case "InvalidRange":
			return s3errors.ErrInvalidRange
		case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequests":
			return s3errors.ErrTooManyRequests
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch status := respErr.HTTPStatusCode(); {
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
