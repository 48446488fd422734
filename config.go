package s3

import (
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

// Config describes how to reach the object store and how to tune the
// transport. Optional settings are pointers or interfaces; nil means the
// transport default applies.
type Config struct {
	// Region is the signing and endpoint-resolution region. Required.
	Region string

	// Endpoint overrides the region's default endpoint, e.g. for MinIO or LocalStack.
	// The accelerated transport addresses the endpoint host only and rejects
	// an endpoint with a path.
	Endpoint *url.URL

	// PathStyleAccess forces path-style (true) or virtual-hosted-style (false)
	// addressing. Nil leaves the choice to the transport.
	PathStyleAccess *bool

	// AcceleratedEnabled selects the accelerated transport.
	AcceleratedEnabled bool

	// AcceleratedUploadThroughputGbps is the upload throughput target of the
	// accelerated transport. Values <= 0 mean no target.
	AcceleratedUploadThroughputGbps float64

	// CertificateCheckEnabled verifies server certificates. Disabling it trusts
	// every certificate and is meant for test or private endpoints only.
	CertificateCheckEnabled bool

	// ChecksumCheckEnabled turns on payload checksums.
	ChecksumCheckEnabled bool

	// APICallTimeout bounds a whole call including retries on the standard
	// transport, and connection establishment on the accelerated one.
	// Zero disables it.
	APICallTimeout time.Duration

	// APICallAttemptTimeout bounds each attempt of a call. Standard transport only.
	APICallAttemptTimeout time.Duration

	// CredentialsProvider replaces the transport's default credential chain.
	CredentialsProvider aws.CredentialsProvider
}

// DefaultConfig returns a Config with certificate checking enabled and
// everything else unset.
func DefaultConfig() *Config {
	return &Config{
		CertificateCheckEnabled: true,
	}
}

// Transport reports which transport cfg selects.
func (c *Config) Transport() s3types.TransportKind {
	if c.AcceleratedEnabled {
		return s3types.TransportAccelerated
	}
	return s3types.TransportStandard
}

// ClientType is the intended usage of a client.
type ClientType int

const (
	// ClientTypeDownload is for clients that mostly read.
	ClientTypeDownload ClientType = iota

	// ClientTypeUpload is for clients that mostly write. Only upload clients
	// apply the accelerated throughput target.
	ClientTypeUpload
)

// String returns "download" or "upload".
func (t ClientType) String() string {
	switch t {
	case ClientTypeDownload:
		return "download"
	case ClientTypeUpload:
		return "upload"
	default:
		return fmt.Sprintf("ClientType(%d)", int(t))
	}
}
