package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestError_Error tests message formatting for each combination of context fields.
func TestError_Error(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"operation only", NewError("build", cause), "s3.build: boom"},
		{"bucket only", NewError("list", cause).WithBucket("b"), "s3.list bucket b: boom"},
		{"key only", NewError("config", cause).WithKey("s3.region"), "s3.config s3.region: boom"},
		{"bucket and key", NewObjectError("get", "b", "k", cause), "s3.get b/k: boom"},
		{"with message", NewError("put", cause).WithMessage("context"), "s3.put: context: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

// TestError_Unwrap tests that sentinels stay reachable through the wrapper.
func TestError_Unwrap(t *testing.T) {
	err := NewObjectError("get", "b", "k", fmt.Errorf("%w: %w", ErrObjectNotFound, errors.New("NoSuchKey")))

	assert.True(t, IsObjectNotFound(err))
	assert.False(t, IsBucketNotFound(err))
	assert.Equal(t, CodeNotFound, err.Code())
}

// TestNewConfigError tests that config errors carry the property and the sentinel.
func TestNewConfigError(t *testing.T) {
	err := NewConfigError("s3.region", "must not be empty")

	assert.True(t, IsInvalidConfig(err))
	assert.Equal(t, "s3.region", err.Key)
	assert.Equal(t, "s3.config s3.region: s3: invalid configuration: must not be empty", err.Error())
}

type timeoutError struct{ timeout bool }

func (e timeoutError) Error() string   { return "net" }
func (e timeoutError) Timeout() bool   { return e.timeout }
func (e timeoutError) Temporary() bool { return false }

var _ net.Error = timeoutError{}

// TestCodeOf tests classification of sentinels and raw errors.
func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, CodeNone},
		{"object not found", ErrObjectNotFound, CodeNotFound},
		{"bucket not found", ErrBucketNotFound, CodeNotFound},
		{"access denied", ErrAccessDenied, CodeForbidden},
		{"invalid config", ErrInvalidConfig, CodeInvalidConfig},
		{"invalid range", ErrInvalidRange, CodeInvalidInput},
		{"throttled", ErrTooManyRequests, CodeRateLimit},
		{"server", ErrServer, CodeUnavailable},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), CodeTimeout},
		{"net timeout", timeoutError{timeout: true}, CodeTimeout},
		{"net failure", timeoutError{}, CodeNetwork},
		{"other", errors.New("other"), CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}
