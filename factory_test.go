package s3

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

func newRecordingFactory(
	opts ...s3types.FactoryOption,
) (*Factory, *testutil.RecordingStandardBuilder, *testutil.RecordingAcceleratedBuilder) {
	std := &testutil.RecordingStandardBuilder{}
	acc := &testutil.RecordingAcceleratedBuilder{}

	f := NewFactory(opts...)
	f.newStandard = func() transport.StandardBuilder { return std }
	f.newAccelerated = func() transport.AcceleratedBuilder { return acc }

	return f, std, acc
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Region = "eu-west-1"
	return cfg
}

func trustsAll(client *awshttp.BuildableClient) bool {
	tr := client.GetTransport()
	return tr.TLSClientConfig != nil && tr.TLSClientConfig.InsecureSkipVerify
}

func TestFactory_TransportSelection(t *testing.T) {
	tests := []struct {
		name        string
		accelerated bool
		clientType  ClientType
		want        s3types.TransportKind
	}{
		{"standard download", false, ClientTypeDownload, s3types.TransportStandard},
		{"standard upload", false, ClientTypeUpload, s3types.TransportStandard},
		{"accelerated download", true, ClientTypeDownload, s3types.TransportAccelerated},
		{"accelerated upload", true, ClientTypeUpload, s3types.TransportAccelerated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, std, acc := newRecordingFactory()
			cfg := testConfig()
			cfg.AcceleratedEnabled = tt.accelerated

			store, err := f.BuildFor(cfg, tt.clientType)

			require.NoError(t, err)
			assert.Equal(t, tt.want, store.Transport())
			if tt.accelerated {
				assert.Empty(t, std.Calls, "standard builder must not be touched")
				assert.True(t, acc.Called(testutil.CallBuild))
			} else {
				assert.Empty(t, acc.Calls, "accelerated builder must not be touched")
				assert.True(t, std.Called(testutil.CallBuild))
			}
		})
	}
}

func TestFactory_Build_DefaultsToDownload(t *testing.T) {
	f, _, acc := newRecordingFactory()
	cfg := testConfig()
	cfg.AcceleratedEnabled = true
	cfg.AcceleratedUploadThroughputGbps = 5

	_, err := f.Build(cfg)

	require.NoError(t, err)
	assert.False(t, acc.Called(testutil.CallTargetThroughputGbps))
}

func TestFactory_ThroughputTarget(t *testing.T) {
	tests := []struct {
		name        string
		accelerated bool
		clientType  ClientType
		target      float64
		applied     bool
	}{
		{"accelerated upload positive", true, ClientTypeUpload, 5, true},
		{"accelerated upload zero", true, ClientTypeUpload, 0, false},
		{"accelerated upload negative", true, ClientTypeUpload, -1, false},
		{"accelerated download positive", true, ClientTypeDownload, 5, false},
		{"accelerated download zero", true, ClientTypeDownload, 0, false},
		{"standard upload positive", false, ClientTypeUpload, 5, false},
		{"standard upload zero", false, ClientTypeUpload, 0, false},
		{"standard download positive", false, ClientTypeDownload, 5, false},
		{"standard download zero", false, ClientTypeDownload, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, std, acc := newRecordingFactory()
			cfg := testConfig()
			cfg.AcceleratedEnabled = tt.accelerated
			cfg.AcceleratedUploadThroughputGbps = tt.target

			_, err := f.BuildFor(cfg, tt.clientType)
			require.NoError(t, err)

			assert.Equal(t, tt.applied, acc.Called(testutil.CallTargetThroughputGbps))
			if tt.applied {
				require.NotNil(t, acc.Throughput)
				assert.Equal(t, tt.target, *acc.Throughput)
			} else {
				assert.Nil(t, acc.Throughput)
			}
			assert.False(t, std.Called(testutil.CallTargetThroughputGbps))
		})
	}
}

func TestFactory_RegionAndEndpoint(t *testing.T) {
	endpoint := &url.URL{Scheme: "http", Host: "localhost:9000"}

	for _, accelerated := range []bool{false, true} {
		for _, override := range []*url.URL{nil, endpoint} {
			f, std, acc := newRecordingFactory()
			cfg := testConfig()
			cfg.AcceleratedEnabled = accelerated
			cfg.Endpoint = override

			_, err := f.BuildFor(cfg, ClientTypeUpload)
			require.NoError(t, err)

			calls, region, got := std.Calls, std.RegionValue, std.Endpoint
			if accelerated {
				calls, region, got = acc.Calls, acc.RegionValue, acc.Endpoint
			}
			assert.Equal(t, testutil.CallRegion, calls[0])
			assert.Equal(t, "eu-west-1", region)
			if override == nil {
				assert.NotContains(t, calls, testutil.CallEndpointOverride, "accelerated=%v", accelerated)
				assert.Nil(t, got)
			} else {
				assert.Equal(t, testutil.CallEndpointOverride, calls[1], "accelerated=%v", accelerated)
				assert.Same(t, endpoint, got)
			}
		}
	}
}

func TestFactory_PathStyle(t *testing.T) {
	tests := []struct {
		name      string
		pathStyle *bool
	}{
		{"absent", nil},
		{"forced path style", aws.Bool(true)},
		{"forced virtual hosted", aws.Bool(false)},
	}

	for _, tt := range tests {
		for _, accelerated := range []bool{false, true} {
			t.Run(tt.name, func(t *testing.T) {
				f, std, acc := newRecordingFactory()
				cfg := testConfig()
				cfg.AcceleratedEnabled = accelerated
				cfg.PathStyleAccess = tt.pathStyle

				_, err := f.Build(cfg)
				require.NoError(t, err)

				called, got := std.Called(testutil.CallForcePathStyle), std.PathStyle
				if accelerated {
					called, got = acc.Called(testutil.CallForcePathStyle), acc.PathStyle
				}
				assert.Equal(t, tt.pathStyle != nil, called)
				assert.Equal(t, tt.pathStyle, got)
			})
		}
	}
}

func TestFactory_Credentials(t *testing.T) {
	provider := testutil.StaticCredentials()

	for _, accelerated := range []bool{false, true} {
		for _, configured := range []aws.CredentialsProvider{nil, provider} {
			f, std, acc := newRecordingFactory()
			cfg := testConfig()
			cfg.AcceleratedEnabled = accelerated
			cfg.CredentialsProvider = configured

			_, err := f.Build(cfg)
			require.NoError(t, err)

			called, got := std.Called(testutil.CallCredentialsProvider), std.Credentials
			if accelerated {
				called, got = acc.Called(testutil.CallCredentialsProvider), acc.Credentials
			}
			assert.Equal(t, configured != nil, called, "accelerated=%v", accelerated)
			assert.Equal(t, configured, got)
		}
	}
}

func TestFactory_Standard_TrustAllCertificates(t *testing.T) {
	tests := []struct {
		name             string
		certificateCheck bool
		wantClients      int
		wantTrustAll     bool
	}{
		{"verification enabled", true, 1, false},
		{"verification disabled", false, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, std, _ := newRecordingFactory()
			cfg := testConfig()
			cfg.CertificateCheckEnabled = tt.certificateCheck

			_, err := f.Build(cfg)
			require.NoError(t, err)

			require.Len(t, std.HTTPClients, tt.wantClients)
			assert.False(t, trustsAll(std.HTTPClients[0]), "the default client always verifies")
			assert.Equal(t, tt.wantTrustAll, trustsAll(std.LastHTTPClient()))
		})
	}
}

func TestFactory_Accelerated_HTTPConfiguration(t *testing.T) {
	tests := []struct {
		name             string
		certificateCheck bool
		timeout          time.Duration
	}{
		{"verification enabled", true, 30 * time.Second},
		{"verification disabled", false, 5 * time.Second},
		{"no timeout", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _, acc := newRecordingFactory()
			cfg := testConfig()
			cfg.AcceleratedEnabled = true
			cfg.CertificateCheckEnabled = tt.certificateCheck
			cfg.APICallTimeout = tt.timeout
			cfg.APICallAttemptTimeout = time.Hour

			_, err := f.Build(cfg)
			require.NoError(t, err)

			require.NotNil(t, acc.HTTPConfig)
			assert.Equal(t, transport.HTTPConfiguration{
				TrustAllCertificates: !tt.certificateCheck,
				ConnectionTimeout:    tt.timeout,
			}, *acc.HTTPConfig)
		})
	}
}

func TestFactory_ChecksumPassThrough(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		f, std, acc := newRecordingFactory()
		cfg := testConfig()
		cfg.ChecksumCheckEnabled = enabled

		_, err := f.Build(cfg)
		require.NoError(t, err)
		assert.True(t, std.Called(testutil.CallServiceConfiguration))
		assert.Equal(t, enabled, std.Service.ChecksumValidationEnabled)

		cfg.AcceleratedEnabled = true
		_, err = f.Build(cfg)
		require.NoError(t, err)
		require.NotNil(t, acc.Checksum)
		assert.Equal(t, enabled, *acc.Checksum)
	}
}

func TestFactory_Standard_OverrideConfiguration(t *testing.T) {
	publisher := &testutil.MockMetricPublisher{}
	f, std, _ := newRecordingFactory(WithMetricPublisher(publisher))
	cfg := testConfig()
	cfg.APICallTimeout = 30 * time.Second
	cfg.APICallAttemptTimeout = 5 * time.Second

	_, err := f.Build(cfg)
	require.NoError(t, err)

	assert.True(t, std.Called(testutil.CallOverrideConfiguration))
	assert.Equal(t, 30*time.Second, std.Override.APICallTimeout)
	assert.Equal(t, 5*time.Second, std.Override.APICallAttemptTimeout)
	require.Len(t, std.Override.MetricPublishers, 1)
	assert.Same(t, publisher, std.Override.MetricPublishers[0])
	assert.Nil(t, f.Collector())
}

func TestFactory_Standard_DefaultCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	f, std, _ := newRecordingFactory(WithMetricsRegisterer(reg))

	_, err := f.Build(testConfig())
	require.NoError(t, err)

	require.NotNil(t, f.Collector())
	require.Len(t, std.Override.MetricPublishers, 1)
	assert.Same(t, f.Collector(), std.Override.MetricPublishers[0])

	// A second factory on the same registry shares the collector.
	other := NewFactory(WithMetricsRegisterer(reg))
	assert.Same(t, f.Collector(), other.Collector())
}

func TestFactory_StepOrder(t *testing.T) {
	f, std, acc := newRecordingFactory()
	cfg := testConfig()
	cfg.Endpoint = &url.URL{Scheme: "https", Host: "storage.example.com"}
	cfg.PathStyleAccess = aws.Bool(true)
	cfg.CertificateCheckEnabled = false
	cfg.CredentialsProvider = testutil.StaticCredentials()
	cfg.AcceleratedUploadThroughputGbps = 8

	_, err := f.BuildFor(cfg, ClientTypeUpload)
	require.NoError(t, err)
	assert.Equal(t, []string{
		testutil.CallRegion,
		testutil.CallEndpointOverride,
		testutil.CallForcePathStyle,
		testutil.CallHTTPClient,
		testutil.CallHTTPClient,
		testutil.CallServiceConfiguration,
		testutil.CallCredentialsProvider,
		testutil.CallOverrideConfiguration,
		testutil.CallBuild,
	}, std.Calls)

	cfg.AcceleratedEnabled = true
	_, err = f.BuildFor(cfg, ClientTypeUpload)
	require.NoError(t, err)
	assert.Equal(t, []string{
		testutil.CallRegion,
		testutil.CallEndpointOverride,
		testutil.CallForcePathStyle,
		testutil.CallTargetThroughputGbps,
		testutil.CallHTTPConfiguration,
		testutil.CallChecksumValidationEnabled,
		testutil.CallCredentialsProvider,
		testutil.CallBuild,
	}, acc.Calls)
}

func TestFactory_BuilderErrorsPropagateUnchanged(t *testing.T) {
	buildErr := s3errors.NewConfigError("region", "must not be empty")

	for _, accelerated := range []bool{false, true} {
		f, std, acc := newRecordingFactory()
		std.BuildErr = buildErr
		acc.BuildErr = buildErr
		cfg := testConfig()
		cfg.AcceleratedEnabled = accelerated

		store, err := f.Build(cfg)

		assert.Nil(t, store)
		assert.Same(t, buildErr, err)
	}
}

func TestFactory_NilConfig(t *testing.T) {
	f, std, acc := newRecordingFactory()

	store, err := f.Build(nil)

	assert.Nil(t, store)
	assert.True(t, s3errors.IsInvalidConfig(err))
	assert.Empty(t, std.Calls)
	assert.Empty(t, acc.Calls)
}

func TestFactory_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f, std, _ := newRecordingFactory(WithLogger(logger))

	_, err := f.BuildFor(testConfig(), ClientTypeUpload)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "building object-store client")
	assert.Contains(t, buf.String(), "transport=standard")
	assert.Contains(t, buf.String(), "client_type=upload")

	buf.Reset()
	std.BuildErr = errors.New("boom")
	_, err = f.Build(testConfig())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "error=boom")
}

// TestFactory_RealBuilders builds both transports end to end against the
// in-process fake, with the default builders in place.
func TestFactory_RealBuilders(t *testing.T) {
	fake := testutil.NewFakeS3TLS(t, "segments")
	fake.PutRaw("segments", "00000000000000000042.log", []byte("record batch"))

	for _, accelerated := range []bool{false, true} {
		f := NewFactory(WithMetricPublisher(&testutil.MockMetricPublisher{}))
		cfg := testConfig()
		cfg.AcceleratedEnabled = accelerated
		cfg.Endpoint = fake.URL()
		cfg.PathStyleAccess = aws.Bool(true)
		cfg.CertificateCheckEnabled = false
		cfg.CredentialsProvider = testutil.StaticCredentials()

		store, err := f.Build(cfg)
		require.NoError(t, err)

		info, err := store.HeadObject(context.Background(), "segments", "00000000000000000042.log")
		require.NoError(t, err, "accelerated=%v", accelerated)
		assert.Equal(t, int64(len("record batch")), info.Size)
		require.NoError(t, store.Close())
	}
}

func TestClientType_String(t *testing.T) {
	assert.Equal(t, "download", ClientTypeDownload.String())
	assert.Equal(t, "upload", ClientTypeUpload.String())
	assert.Equal(t, "ClientType(7)", ClientType(7).String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.CertificateCheckEnabled)
	assert.False(t, cfg.AcceleratedEnabled)
	assert.Nil(t, cfg.Endpoint)
	assert.Nil(t, cfg.PathStyleAccess)
	assert.Nil(t, cfg.CredentialsProvider)
	assert.Equal(t, s3types.TransportStandard, cfg.Transport())
}
