// Package transport defines the builder contracts the client factory drives.
//
// Each transport exposes a builder with one method per configuration knob.
// The factory calls a method only when the corresponding setting applies, so
// the sequence of calls a builder receives is the observable record of how a
// client was configured.
package transport

import (
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

// StandardBuilder configures a client backed by the standard HTTP transport.
type StandardBuilder interface {
	// Region sets the signing and endpoint-resolution region.
	Region(region string)

	// EndpointOverride redirects requests to endpoint. The region still applies to signing.
	EndpointOverride(endpoint *url.URL)

	// ForcePathStyle selects path-style (true) or virtual-hosted-style (false) addressing.
	ForcePathStyle(enabled bool)

	// HTTPClient sets the HTTP client; a later call replaces an earlier one.
	HTTPClient(client *awshttp.BuildableClient)

	// ServiceConfiguration mutates service-level settings.
	ServiceConfiguration(fn func(*ServiceConfiguration))

	// CredentialsProvider replaces the default credential resolution chain.
	CredentialsProvider(provider aws.CredentialsProvider)

	// OverrideConfiguration mutates client-level overrides.
	OverrideConfiguration(fn func(*OverrideConfiguration))

	// Build finalizes the client.
	Build() (s3types.ObjectStore, error)
}

// AcceleratedBuilder configures a client backed by the accelerated transport.
type AcceleratedBuilder interface {
	// Region sets the signing region.
	Region(region string)

	// EndpointOverride redirects requests to endpoint. The region still applies to signing.
	EndpointOverride(endpoint *url.URL)

	// ForcePathStyle selects path-style (true) or virtual-hosted-style (false) addressing.
	ForcePathStyle(enabled bool)

	// TargetThroughputGbps sets the upload throughput the client tunes its parallelism for.
	TargetThroughputGbps(gbps float64)

	// HTTPConfiguration sets the transport-level HTTP settings.
	HTTPConfiguration(cfg HTTPConfiguration)

	// ChecksumValidationEnabled toggles payload checksums.
	ChecksumValidationEnabled(enabled bool)

	// CredentialsProvider replaces the default credential resolution chain.
	CredentialsProvider(provider aws.CredentialsProvider)

	// Build finalizes the client.
	Build() (s3types.ObjectStore, error)
}

// HTTPConfiguration holds the accelerated transport's HTTP settings.
type HTTPConfiguration struct {
	// TrustAllCertificates disables server certificate verification
	TrustAllCertificates bool

	// ConnectionTimeout bounds connection establishment; zero keeps the transport default
	ConnectionTimeout time.Duration
}

// ServiceConfiguration holds service-level settings of the standard transport.
type ServiceConfiguration struct {
	// ChecksumValidationEnabled computes request checksums and validates response
	// checksums whenever the service supports them
	ChecksumValidationEnabled bool
}

// OverrideConfiguration holds client-level overrides of the standard transport.
type OverrideConfiguration struct {
	// MetricPublishers receive one CallMetrics per completed call
	MetricPublishers []s3types.MetricPublisher

	// APICallTimeout bounds a whole call including retries; zero disables it
	APICallTimeout time.Duration

	// APICallAttemptTimeout bounds each attempt of a call; zero disables it
	APICallAttemptTimeout time.Duration
}

// AddMetricPublisher appends a publisher. Nil publishers are ignored.
func (c *OverrideConfiguration) AddMetricPublisher(publisher s3types.MetricPublisher) {
	if publisher == nil {
		return
	}
	c.MetricPublishers = append(c.MetricPublishers, publisher)
}
