package s3

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
)

func TestParseProperties(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults",
			props: map[string]string{PropertyRegion: "eu-west-1"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "eu-west-1", cfg.Region)
				assert.True(t, cfg.CertificateCheckEnabled)
				assert.False(t, cfg.AcceleratedEnabled)
				assert.False(t, cfg.ChecksumCheckEnabled)
				assert.Nil(t, cfg.Endpoint)
				assert.Nil(t, cfg.PathStyleAccess)
				assert.Nil(t, cfg.CredentialsProvider)
				assert.Zero(t, cfg.APICallTimeout)
			},
		},
		{
			name: "all transport settings",
			props: map[string]string{
				PropertyRegion:                "us-east-1",
				PropertyEndpointURL:           "http://localhost:9000",
				PropertyPathStyleAccess:       "true",
				PropertyAcceleratedEnabled:    "true",
				PropertyAcceleratedThroughput: "12.5",
				PropertyCertificateCheck:      "false",
				PropertyChecksumCheck:         "true",
				PropertyAPICallTimeout:        "30000",
				PropertyAPICallAttemptTimeout: "2s",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, &url.URL{Scheme: "http", Host: "localhost:9000"}, cfg.Endpoint)
				require.NotNil(t, cfg.PathStyleAccess)
				assert.True(t, *cfg.PathStyleAccess)
				assert.True(t, cfg.AcceleratedEnabled)
				assert.InDelta(t, 12.5, cfg.AcceleratedUploadThroughputGbps, 1e-9)
				assert.False(t, cfg.CertificateCheckEnabled)
				assert.True(t, cfg.ChecksumCheckEnabled)
				assert.Equal(t, 30*time.Second, cfg.APICallTimeout)
				assert.Equal(t, 2*time.Second, cfg.APICallAttemptTimeout)
			},
		},
		{
			name:  "explicit virtual hosted style",
			props: map[string]string{PropertyPathStyleAccess: "false"},
			check: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.PathStyleAccess)
				assert.False(t, *cfg.PathStyleAccess)
			},
		},
		{
			name:  "blank values are unset",
			props: map[string]string{PropertyPathStyleAccess: " ", PropertyEndpointURL: ""},
			check: func(t *testing.T, cfg *Config) {
				assert.Nil(t, cfg.PathStyleAccess)
				assert.Nil(t, cfg.Endpoint)
			},
		},
		{
			name: "static credentials inferred",
			props: map[string]string{
				PropertyAccessKeyID:     "AKID",
				PropertySecretAccessKey: "SECRET",
				PropertySessionToken:    "TOKEN",
			},
			check: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.CredentialsProvider)
				creds, err := cfg.CredentialsProvider.Retrieve(context.Background())
				require.NoError(t, err)
				assert.Equal(t, "AKID", creds.AccessKeyID)
				assert.Equal(t, "SECRET", creds.SecretAccessKey)
				assert.Equal(t, "TOKEN", creds.SessionToken)
			},
		},
		{
			name:  "anonymous credentials",
			props: map[string]string{PropertyCredentialsKind: CredentialsAnonymous},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, aws.IsCredentialsProvider(cfg.CredentialsProvider, (*aws.AnonymousCredentials)(nil)))
			},
		},
		{
			name: "default kind ignores keys",
			props: map[string]string{
				PropertyCredentialsKind: CredentialsDefault,
				PropertyAccessKeyID:     "AKID",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Nil(t, cfg.CredentialsProvider)
			},
		},
		{
			name: "sts credentials",
			props: map[string]string{
				PropertyRegion:             "eu-west-1",
				PropertyRoleARN:            "arn:aws:iam::123456789012:role/tiered-storage",
				PropertyRoleExternalID:     "external",
				PropertyRoleSessionTimeout: "15m",
				PropertyAccessKeyID:        "AKID",
				PropertySecretAccessKey:    "SECRET",
			},
			check: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.CredentialsProvider)
				assert.IsType(t, &aws.CredentialsCache{}, cfg.CredentialsProvider)
			},
		},
		{
			name:  "unknown keys ignored",
			props: map[string]string{"s3.multipart.upload.part.size": "5242880"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseProperties(tt.props)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestParseProperties_Errors(t *testing.T) {
	tests := []struct {
		name    string
		props   map[string]string
		wantKey string
	}{
		{"bad endpoint", map[string]string{PropertyEndpointURL: "http://[::1"}, PropertyEndpointURL},
		{"bad bool", map[string]string{PropertyAcceleratedEnabled: "yes please"}, PropertyAcceleratedEnabled},
		{"bad path style", map[string]string{PropertyPathStyleAccess: "maybe"}, PropertyPathStyleAccess},
		{"bad throughput", map[string]string{PropertyAcceleratedThroughput: "fast"}, PropertyAcceleratedThroughput},
		{"bad timeout", map[string]string{PropertyAPICallTimeout: "soon"}, PropertyAPICallTimeout},
		{"bad attempt timeout", map[string]string{PropertyAPICallAttemptTimeout: "1 minute"}, PropertyAPICallAttemptTimeout},
		{"unknown credentials kind", map[string]string{PropertyCredentialsKind: "vault"}, PropertyCredentialsKind},
		{
			"static without secret",
			map[string]string{PropertyCredentialsKind: CredentialsStatic, PropertyAccessKeyID: "AKID"},
			PropertySecretAccessKey,
		},
		{"static without key", map[string]string{PropertyCredentialsKind: CredentialsStatic}, PropertyAccessKeyID},
		{"sts without role", map[string]string{PropertyCredentialsKind: CredentialsSTS}, PropertyRoleARN},
		{
			"sts bad session duration",
			map[string]string{PropertyRoleARN: "arn:aws:iam::123456789012:role/r", PropertyRoleSessionTimeout: "long"},
			PropertyRoleSessionTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseProperties(tt.props)

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.True(t, s3errors.IsInvalidConfig(err), "got %v", err)
			var s3Err *s3errors.Error
			require.ErrorAs(t, err, &s3Err)
			assert.Equal(t, tt.wantKey, s3Err.Key)
		})
	}
}

func TestLoadProperties(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "storage.properties")
	local := filepath.Join(dir, "local.properties")

	require.NoError(t, os.WriteFile(base, []byte(`# tiered storage
s3.region=eu-west-1
s3.endpoint.url=https://storage.example.com
s3.accelerated.enabled=true
s3.api.call.timeout=10s
`), 0o600))
	require.NoError(t, os.WriteFile(local, []byte(`s3.endpoint.url=http://localhost:4566
s3.path.style.access.enabled=true
`), 0o600))

	cfg, err := LoadProperties(base, local)

	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "http://localhost:4566", cfg.Endpoint.String())
	require.NotNil(t, cfg.PathStyleAccess)
	assert.True(t, *cfg.PathStyleAccess)
	assert.True(t, cfg.AcceleratedEnabled)
	assert.Equal(t, 10*time.Second, cfg.APICallTimeout)
}

func TestLoadProperties_MissingFile(t *testing.T) {
	cfg, err := LoadProperties(filepath.Join(t.TempDir(), "missing.properties"))

	assert.Nil(t, cfg)
	assert.True(t, s3errors.IsInvalidConfig(err))
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TS_S3_REGION", "ap-southeast-2")
	t.Setenv("TS_S3_CHECKSUM_CHECK_ENABLED", "true")
	t.Setenv("TS_S3_API_CALL_ATTEMPT_TIMEOUT", "1500")
	t.Setenv("S3_REGION", "ignored-without-prefix")

	cfg, err := LoadEnv("TS_")

	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", cfg.Region)
	assert.True(t, cfg.ChecksumCheckEnabled)
	assert.Equal(t, 1500*time.Millisecond, cfg.APICallAttemptTimeout)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "TS_S3_REGION", EnvName("TS_", PropertyRegion))
	assert.Equal(t, "AWS_STS_ROLE_ARN", EnvName("", PropertyRoleARN))
}
