package s3

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

// WithLogger sets the logger for construction logs.
// If not provided, nothing is logged.
func WithLogger(logger *slog.Logger) s3types.FactoryOption {
	return func(c *s3types.FactoryConfig) {
		c.Logger = logger
	}
}

// WithMetricPublisher attaches publisher to every standard-transport client.
// It can be given several times. When no publisher is given the factory
// attaches a Prometheus collector.
func WithMetricPublisher(publisher s3types.MetricPublisher) s3types.FactoryOption {
	return func(c *s3types.FactoryConfig) {
		if publisher != nil {
			c.MetricPublishers = append(c.MetricPublishers, publisher)
		}
	}
}

// WithMetricsRegisterer sets where the default Prometheus collector is
// registered. Ignored when a publisher is given with WithMetricPublisher.
func WithMetricsRegisterer(reg prometheus.Registerer) s3types.FactoryOption {
	return func(c *s3types.FactoryConfig) {
		c.Registerer = reg
	}
}

// WithContentType sets the object's content type. Without it the type is
// sniffed from seekable bodies.
func WithContentType(contentType string) s3types.PutOption {
	return func(c *s3types.PutOptionConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata stores metadata with the object as user metadata.
func WithMetadata(metadata map[string]string) s3types.PutOption {
	return func(c *s3types.PutOptionConfig) {
		c.Metadata = metadata
	}
}

// WithStorageClass selects the storage class for the object.
func WithStorageClass(class s3types.StorageClass) s3types.PutOption {
	return func(c *s3types.PutOptionConfig) {
		c.StorageClass = class
	}
}
