package standard

import (
	"context"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

// Builder accumulates standard transport settings. It is not safe for
// concurrent use; the factory creates one per construction.
type Builder struct {
	region      string
	endpoint    *url.URL
	pathStyle   *bool
	httpClient  *awshttp.BuildableClient
	service     transport.ServiceConfiguration
	credentials aws.CredentialsProvider
	override    transport.OverrideConfiguration
}

var _ transport.StandardBuilder = (*Builder)(nil)

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Region sets the signing and endpoint-resolution region.
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

// HTTPClient sets the HTTP client, replacing any earlier one.
func (b *Builder) HTTPClient(client *awshttp.BuildableClient) {
	b.httpClient = client
}

// ServiceConfiguration mutates service-level settings.
func (b *Builder) ServiceConfiguration(fn func(*transport.ServiceConfiguration)) {
	fn(&b.service)
}

// CredentialsProvider replaces the default credential chain.
func (b *Builder) CredentialsProvider(provider aws.CredentialsProvider) {
	b.credentials = provider
}

// OverrideConfiguration mutates client-level overrides.
func (b *Builder) OverrideConfiguration(fn func(*transport.OverrideConfiguration)) {
	fn(&b.override)
}

// Build validates the accumulated settings and creates the client.
// Credentials and connections are resolved lazily on first use.
func (b *Builder) Build() (s3types.ObjectStore, error) {
	if err := validation.ValidateRegion(b.region); err != nil {
		return nil, err
	}
	if err := validation.ValidateEndpoint(b.endpoint); err != nil {
		return nil, err
	}
	if err := validation.ValidateTimeout("api call timeout", b.override.APICallTimeout); err != nil {
		return nil, err
	}
	if err := validation.ValidateTimeout("api call attempt timeout", b.override.APICallAttemptTimeout); err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(b.region))
	if err != nil {
		return nil, err
	}

	buildable := b.httpClient
	if buildable == nil {
		buildable = NewHTTPClient()
	}
	// Freezing pins the transport so Close can release its idle connections.
	httpClient := buildable.Freeze()

	client := s3.NewFromConfig(cfg, b.clientOptions(httpClient))

	return NewStore(client, httpClient), nil
}

// clientOptions translates the accumulated settings into S3 client options.
func (b *Builder) clientOptions(httpClient aws.HTTPClient) func(*s3.Options) {
	return func(o *s3.Options) {
		o.Region = b.region
		o.HTTPClient = httpClient

		if b.endpoint != nil {
			o.BaseEndpoint = aws.String(b.endpoint.String())
		}
		if b.pathStyle != nil {
			o.UsePathStyle = *b.pathStyle
		}
		if b.credentials != nil {
			o.Credentials = b.credentials
		}

		if b.service.ChecksumValidationEnabled {
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenSupported
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenSupported
		} else {
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}

		o.APIOptions = append(o.APIOptions,
			addMetricsMiddleware(b.override.MetricPublishers),
			addCallTimeoutMiddleware(b.override.APICallTimeout),
			addAttemptTimeoutMiddleware(b.override.APICallAttemptTimeout),
		)
	}
}
