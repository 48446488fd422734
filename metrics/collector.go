// Package metrics provides a Prometheus-backed MetricPublisher for the
// standard transport.
//
// A Collector exposes three series, all labelled by service operation:
//   - s3_client_requests_total: completed calls by result (success/error)
//   - s3_client_errors_total: failed calls by error type
//   - s3_client_request_duration_seconds: call latency including retries
package metrics

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

const namespace = "s3_client"

// Collector records per-call metrics. It implements both
// s3types.MetricPublisher and prometheus.Collector.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
}

var (
	_ s3types.MetricPublisher = (*Collector)(nil)
	_ prometheus.Collector    = (*Collector)(nil)
)

// New creates an unregistered Collector.
func New() *Collector {
	return &Collector{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Completed object-store calls by operation and result.",
			},
			[]string{"operation", "result"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed object-store calls by operation and error type.",
			},
			[]string{"operation", "error_type"},
		),
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Object-store call latency including retries.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// NewCollector creates a Collector and registers it with reg. When an
// equivalent Collector is already registered, that one is returned so
// several clients can share one registry. A nil reg skips registration.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := New()
	if reg == nil {
		return c, nil
	}

	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*Collector); ok {
				return existing, nil
			}
		}
		return nil, s3errors.NewError("registerMetrics", err)
	}

	return c, nil
}

// PublishCall records one completed call.
func (c *Collector) PublishCall(_ context.Context, m s3types.CallMetrics) {
	operation := m.Operation
	if operation == "" {
		operation = "unknown"
	}

	c.durationSeconds.WithLabelValues(operation).Observe(m.Duration.Seconds())

	if m.Err == nil {
		c.requestsTotal.WithLabelValues(operation, "success").Inc()
		return
	}
	c.requestsTotal.WithLabelValues(operation, "error").Inc()
	c.errorsTotal.WithLabelValues(operation, ErrorType(m.Err)).Inc()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.requestsTotal.Describe(ch)
	c.errorsTotal.Describe(ch)
	c.durationSeconds.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.requestsTotal.Collect(ch)
	c.errorsTotal.Collect(ch)
	c.durationSeconds.Collect(ch)
}

// ErrorType returns the metric label for err, e.g. "not_found".
func ErrorType(err error) string {
	return strings.ToLower(string(s3errors.CodeOf(err)))
}
