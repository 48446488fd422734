package testutil

import (
	"context"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

// Builder method names as recorded by the recording builders.
const (
	CallRegion                    = "Region"
	CallEndpointOverride          = "EndpointOverride"
	CallForcePathStyle            = "ForcePathStyle"
	CallHTTPClient                = "HTTPClient"
	CallServiceConfiguration      = "ServiceConfiguration"
	CallCredentialsProvider       = "CredentialsProvider"
	CallOverrideConfiguration     = "OverrideConfiguration"
	CallTargetThroughputGbps      = "TargetThroughputGbps"
	CallHTTPConfiguration         = "HTTPConfiguration"
	CallChecksumValidationEnabled = "ChecksumValidationEnabled"
	CallBuild                     = "Build"
)

// RecordingStandardBuilder records every call the factory makes and the
// values it passes. Build returns a StubStore unless BuildErr is set.
type RecordingStandardBuilder struct {
	Calls       []string
	RegionValue string
	Endpoint    *url.URL
	PathStyle   *bool
	HTTPClients []*awshttp.BuildableClient
	Service     transport.ServiceConfiguration
	Credentials aws.CredentialsProvider
	Override    transport.OverrideConfiguration
	BuildErr    error
}

var _ transport.StandardBuilder = (*RecordingStandardBuilder)(nil)

// Region records the region.
func (b *RecordingStandardBuilder) Region(region string) {
	b.Calls = append(b.Calls, CallRegion)
	b.RegionValue = region
}

// EndpointOverride records the endpoint.
func (b *RecordingStandardBuilder) EndpointOverride(endpoint *url.URL) {
	b.Calls = append(b.Calls, CallEndpointOverride)
	b.Endpoint = endpoint
}

// ForcePathStyle records the addressing style.
func (b *RecordingStandardBuilder) ForcePathStyle(enabled bool) {
	b.Calls = append(b.Calls, CallForcePathStyle)
	b.PathStyle = aws.Bool(enabled)
}

// HTTPClient records the client.
func (b *RecordingStandardBuilder) HTTPClient(client *awshttp.BuildableClient) {
	b.Calls = append(b.Calls, CallHTTPClient)
	b.HTTPClients = append(b.HTTPClients, client)
}

// ServiceConfiguration applies fn to the recorded service configuration.
func (b *RecordingStandardBuilder) ServiceConfiguration(fn func(*transport.ServiceConfiguration)) {
	b.Calls = append(b.Calls, CallServiceConfiguration)
	fn(&b.Service)
}

// CredentialsProvider records the provider.
func (b *RecordingStandardBuilder) CredentialsProvider(provider aws.CredentialsProvider) {
	b.Calls = append(b.Calls, CallCredentialsProvider)
	b.Credentials = provider
}

// OverrideConfiguration applies fn to the recorded override configuration.
func (b *RecordingStandardBuilder) OverrideConfiguration(fn func(*transport.OverrideConfiguration)) {
	b.Calls = append(b.Calls, CallOverrideConfiguration)
	fn(&b.Override)
}

// Build records the call and returns a stub store.
func (b *RecordingStandardBuilder) Build() (s3types.ObjectStore, error) {
	b.Calls = append(b.Calls, CallBuild)
	if b.BuildErr != nil {
		return nil, b.BuildErr
	}
	return &StubStore{Kind: s3types.TransportStandard}, nil
}

// Called reports whether method was invoked.
func (b *RecordingStandardBuilder) Called(method string) bool {
	return contains(b.Calls, method)
}

// LastHTTPClient returns the client set last, or nil.
func (b *RecordingStandardBuilder) LastHTTPClient() *awshttp.BuildableClient {
	if len(b.HTTPClients) == 0 {
		return nil
	}
	return b.HTTPClients[len(b.HTTPClients)-1]
}

// RecordingAcceleratedBuilder records every call the factory makes and the
// values it passes. Build returns a StubStore unless BuildErr is set.
type RecordingAcceleratedBuilder struct {
	Calls       []string
	RegionValue string
	Endpoint    *url.URL
	PathStyle   *bool
	Throughput  *float64
	HTTPConfig  *transport.HTTPConfiguration
	Checksum    *bool
	Credentials aws.CredentialsProvider
	BuildErr    error
}

var _ transport.AcceleratedBuilder = (*RecordingAcceleratedBuilder)(nil)

// Region records the region.
func (b *RecordingAcceleratedBuilder) Region(region string) {
	b.Calls = append(b.Calls, CallRegion)
	b.RegionValue = region
}

// EndpointOverride records the endpoint.
func (b *RecordingAcceleratedBuilder) EndpointOverride(endpoint *url.URL) {
	b.Calls = append(b.Calls, CallEndpointOverride)
	b.Endpoint = endpoint
}

// ForcePathStyle records the addressing style.
func (b *RecordingAcceleratedBuilder) ForcePathStyle(enabled bool) {
	b.Calls = append(b.Calls, CallForcePathStyle)
	b.PathStyle = aws.Bool(enabled)
}

// TargetThroughputGbps records the throughput target.
func (b *RecordingAcceleratedBuilder) TargetThroughputGbps(gbps float64) {
	b.Calls = append(b.Calls, CallTargetThroughputGbps)
	b.Throughput = aws.Float64(gbps)
}

// HTTPConfiguration records the HTTP settings.
func (b *RecordingAcceleratedBuilder) HTTPConfiguration(cfg transport.HTTPConfiguration) {
	b.Calls = append(b.Calls, CallHTTPConfiguration)
	b.HTTPConfig = &cfg
}

// ChecksumValidationEnabled records the checksum flag.
func (b *RecordingAcceleratedBuilder) ChecksumValidationEnabled(enabled bool) {
	b.Calls = append(b.Calls, CallChecksumValidationEnabled)
	b.Checksum = aws.Bool(enabled)
}

// CredentialsProvider records the provider.
func (b *RecordingAcceleratedBuilder) CredentialsProvider(provider aws.CredentialsProvider) {
	b.Calls = append(b.Calls, CallCredentialsProvider)
	b.Credentials = provider
}

// Build records the call and returns a stub store.
func (b *RecordingAcceleratedBuilder) Build() (s3types.ObjectStore, error) {
	b.Calls = append(b.Calls, CallBuild)
	if b.BuildErr != nil {
		return nil, b.BuildErr
	}
	return &StubStore{Kind: s3types.TransportAccelerated}, nil
}

// Called reports whether method was invoked.
func (b *RecordingAcceleratedBuilder) Called(method string) bool {
	return contains(b.Calls, method)
}

func contains(calls []string, method string) bool {
	for _, c := range calls {
		if c == method {
			return true
		}
	}
	return false
}

// StubStore is an ObjectStore that does nothing and reports Kind.
type StubStore struct {
	Kind   s3types.TransportKind
	Closed bool
}

var _ s3types.ObjectStore = (*StubStore)(nil)

// PutObject returns an empty result.
func (s *StubStore) PutObject(
	context.Context, string, string, io.Reader, int64, ...s3types.PutOption,
) (*s3types.PutResult, error) {
	return &s3types.PutResult{}, nil
}

// GetObject returns an empty body.
func (s *StubStore) GetObject(context.Context, string, string, *s3types.ByteRange) (io.ReadCloser, error) {
	return io.NopCloser(&emptyReader{}), nil
}

// HeadObject returns empty info.
func (s *StubStore) HeadObject(context.Context, string, string) (*s3types.ObjectInfo, error) {
	return &s3types.ObjectInfo{}, nil
}

// DeleteObject does nothing.
func (s *StubStore) DeleteObject(context.Context, string, string) error { return nil }

// DeleteObjects does nothing.
func (s *StubStore) DeleteObjects(context.Context, string, []string) error { return nil }

// ListObjects returns no objects.
func (s *StubStore) ListObjects(context.Context, string, string) ([]s3types.ObjectInfo, error) {
	return nil, nil
}

// CreateMultipartUpload returns a fixed upload ID.
func (s *StubStore) CreateMultipartUpload(context.Context, string, string, ...s3types.PutOption) (string, error) {
	return "stub-upload", nil
}

// UploadPart echoes the part number.
func (s *StubStore) UploadPart(
	_ context.Context, _, _, _ string, partNumber int32, _ io.Reader, _ int64,
) (s3types.CompletedPart, error) {
	return s3types.CompletedPart{PartNumber: partNumber}, nil
}

// CompleteMultipartUpload returns an empty result.
func (s *StubStore) CompleteMultipartUpload(
	context.Context, string, string, string, []s3types.CompletedPart,
) (*s3types.PutResult, error) {
	return &s3types.PutResult{}, nil
}

// AbortMultipartUpload does nothing.
func (s *StubStore) AbortMultipartUpload(context.Context, string, string, string) error { return nil }

// Transport reports Kind.
func (s *StubStore) Transport() s3types.TransportKind { return s.Kind }

// Close marks the store closed.
func (s *StubStore) Close() error {
	s.Closed = true
	return nil
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }
