package standard

import (
	"context"
	"io"
	"time"

	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/middleware"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

// retryMiddlewareID is the finalize-step middleware that loops over attempts.
const retryMiddlewareID = "Retry"

// callTimeout bounds a whole operation, retries included.
type callTimeout struct {
	timeout time.Duration
}

// ID identifies the middleware in the stack.
func (*callTimeout) ID() string { return "APICallTimeout" }

// HandleInitialize runs the rest of the stack under a deadline.
func (m *callTimeout) HandleInitialize(
	ctx context.Context,
	in middleware.InitializeInput,
	next middleware.InitializeHandler,
) (middleware.InitializeOutput, middleware.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	out, md, err := next.HandleInitialize(ctx, in)
	if err != nil || !holdUntilClose(out.Result, cancel) {
		cancel()
	}
	return out, md, err
}

// attemptTimeout bounds each attempt of an operation.
type attemptTimeout struct {
	timeout time.Duration
}

// ID identifies the middleware in the stack.
func (*attemptTimeout) ID() string { return "APICallAttemptTimeout" }

// HandleFinalize runs one attempt under a deadline.
func (m *attemptTimeout) HandleFinalize(
	ctx context.Context,
	in middleware.FinalizeInput,
	next middleware.FinalizeHandler,
) (middleware.FinalizeOutput, middleware.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	out, md, err := next.HandleFinalize(ctx, in)
	if err != nil || !holdUntilClose(out.Result, cancel) {
		cancel()
	}
	return out, md, err
}

// metricPublication reports every completed call to the configured publishers.
type metricPublication struct {
	publishers []s3types.MetricPublisher
}

// ID identifies the middleware in the stack.
func (*metricPublication) ID() string { return "MetricPublication" }

// HandleInitialize times the rest of the stack and publishes the outcome.
func (m *metricPublication) HandleInitialize(
	ctx context.Context,
	in middleware.InitializeInput,
	next middleware.InitializeHandler,
) (middleware.InitializeOutput, middleware.Metadata, error) {
	start := time.Now()
	out, md, err := next.HandleInitialize(ctx, in)

	call := s3types.CallMetrics{
		Operation: awsmiddleware.GetOperationName(ctx),
		Duration:  time.Since(start),
		Err:       classify(err),
	}
	for _, publisher := range m.publishers {
		publisher.PublishCall(ctx, call)
	}

	return out, md, err
}

func addMetricsMiddleware(publishers []s3types.MetricPublisher) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		if len(publishers) == 0 {
			return nil
		}
		return stack.Initialize.Add(&metricPublication{publishers: publishers}, middleware.After)
	}
}

func addCallTimeoutMiddleware(timeout time.Duration) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		if timeout <= 0 {
			return nil
		}
		return stack.Initialize.Add(&callTimeout{timeout: timeout}, middleware.After)
	}
}

func addAttemptTimeoutMiddleware(timeout time.Duration) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		if timeout <= 0 {
			return nil
		}
		return stack.Finalize.Insert(&attemptTimeout{timeout: timeout}, retryMiddlewareID, middleware.After)
	}
}

// holdUntilClose ties cancel to the lifetime of a streamed response body.
// It reports whether it took ownership of cancel.
func holdUntilClose(result interface{}, cancel context.CancelFunc) bool {
	out, ok := result.(*s3.GetObjectOutput)
	if !ok || out.Body == nil {
		return false
	}
	out.Body = &cancelOnClose{ReadCloser: out.Body, cancel: cancel}
	return true
}

// cancelOnClose releases a timeout context once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

// Close closes the body and releases its context.
func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
