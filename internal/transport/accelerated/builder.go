package accelerated

import (
	"crypto/tls"
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/minio/minio-go/v7"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

const (
	// DefaultEndpoint is used when no endpoint override is configured.
	DefaultEndpoint = "s3.amazonaws.com"

	// gbpsPerConnection is the sustained throughput assumed for one connection.
	gbpsPerConnection = 0.4

	// MaxThreads caps the upload parallelism derived from the throughput target.
	MaxThreads = 64

	defaultDialTimeout  = 30 * time.Second
	keepAlive           = 30 * time.Second
	minIdleConnsPerHost = 16
)

// Builder accumulates accelerated transport settings. It is not safe for
// concurrent use; the factory creates one per construction.
type Builder struct {
	region      string
	endpoint    *url.URL
	pathStyle   *bool
	throughput  float64
	http        transport.HTTPConfiguration
	checksum    bool
	credentials aws.CredentialsProvider
}

var _ transport.AcceleratedBuilder = (*Builder)(nil)

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Region sets the signing region.
func (b *Builder) Region(region string) {
	b.region = region
}

// EndpointOverride redirects requests to endpoint.
func (b *Builder) EndpointOverride(endpoint *url.URL) {
	b.endpoint = endpoint
}

// ForcePathStyle selects the addressing style.
func (b *Builder) ForcePathStyle(enabled bool) {
	b.pathStyle = aws.Bool(enabled)
}

// TargetThroughputGbps sets the upload throughput target.
func (b *Builder) TargetThroughputGbps(gbps float64) {
	b.throughput = gbps
}

// HTTPConfiguration sets the HTTP settings.
func (b *Builder) HTTPConfiguration(cfg transport.HTTPConfiguration) {
	b.http = cfg
}

// ChecksumValidationEnabled toggles payload checksums.
func (b *Builder) ChecksumValidationEnabled(enabled bool) {
	b.checksum = enabled
}

// CredentialsProvider replaces the default credential chain.
func (b *Builder) CredentialsProvider(provider aws.CredentialsProvider) {
	b.credentials = provider
}

// Build validates the accumulated settings and creates the client.
func (b *Builder) Build() (s3types.ObjectStore, error) {
	if err := validation.ValidateRegion(b.region); err != nil {
		return nil, err
	}
	if err := validation.ValidateEndpoint(b.endpoint); err != nil {
		return nil, err
	}
	if b.endpoint != nil && strings.Trim(b.endpoint.Path, "/") != "" {
		return nil, s3errors.NewError("validateEndpoint", s3errors.ErrInvalidConfig).
			WithKey(b.endpoint.String()).
			WithMessage("accelerated transport endpoint cannot have a path")
	}
	if b.throughput < 0 || math.IsNaN(b.throughput) || math.IsInf(b.throughput, 0) {
		return nil, s3errors.NewError("validateThroughput", s3errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("target throughput must be a non-negative number, got %v", b.throughput))
	}
	if err := validation.ValidateTimeout("connection timeout", b.http.ConnectionTimeout); err != nil {
		return nil, err
	}

	host, secure := DefaultEndpoint, true
	if b.endpoint != nil {
		host, secure = b.endpoint.Host, b.endpoint.Scheme == "https"
	}

	threads := Threads(b.throughput)
	tr, err := minio.DefaultTransport(secure)
	if err != nil {
		return nil, s3errors.NewError("build", err)
	}
	dialTimeout := defaultDialTimeout
	if b.http.ConnectionTimeout > 0 {
		dialTimeout = b.http.ConnectionTimeout
	}
	tr.DialContext = (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext
	tr.MaxIdleConnsPerHost = max(minIdleConnsPerHost, int(threads))
	if b.http.TrustAllCertificates {
		if tr.TLSClientConfig == nil {
			tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		tr.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // explicit opt-in via certificate check flag
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        newCredentials(b.credentials),
		Secure:       secure,
		Region:       b.region,
		BucketLookup: b.bucketLookup(),
		Transport:    tr,
	})
	if err != nil {
		return nil, s3errors.NewError("build", fmt.Errorf("%w: %w", s3errors.ErrInvalidConfig, err))
	}

	return NewStore(client, tr, threads, b.checksum), nil
}

func (b *Builder) bucketLookup() minio.BucketLookupType {
	switch {
	case b.pathStyle == nil:
		return minio.BucketLookupAuto
	case *b.pathStyle:
		return minio.BucketLookupPath
	default:
		return minio.BucketLookupDNS
	}
}

// Threads maps a throughput target to upload parallelism. Zero leaves the
// transport default in place.
func Threads(gbps float64) uint {
	if gbps <= 0 {
		return 0
	}
	threads := math.Ceil(gbps / gbpsPerConnection)
	return uint(min(max(threads, 1), MaxThreads))
}
