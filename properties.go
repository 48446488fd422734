package s3

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
)

// Property keys understood by ParseProperties.
const (
	PropertyRegion                = "s3.region"
	PropertyEndpointURL           = "s3.endpoint.url"
	PropertyPathStyleAccess       = "s3.path.style.access.enabled"
	PropertyAcceleratedEnabled    = "s3.accelerated.enabled"
	PropertyAcceleratedThroughput = "s3.accelerated.upload.throughput.gbps"
	PropertyCertificateCheck      = "s3.certificate.check.enabled"
	PropertyChecksumCheck         = "s3.checksum.check.enabled"
	PropertyAPICallTimeout        = "s3.api.call.timeout"
	PropertyAPICallAttemptTimeout = "s3.api.call.attempt.timeout"

	PropertyAccessKeyID        = "aws.access.key.id"
	PropertySecretAccessKey    = "aws.secret.access.key"
	PropertySessionToken       = "aws.session.token"
	PropertyCredentialsKind    = "aws.credentials.provider"
	PropertyRoleARN            = "aws.sts.role.arn"
	PropertyRoleExternalID     = "aws.sts.role.external.id"
	PropertyRoleSessionName    = "aws.sts.role.session.name"
	PropertyRoleSessionTimeout = "aws.sts.role.session.duration"
)

var propertyKeys = []string{
	PropertyRegion,
	PropertyEndpointURL,
	PropertyPathStyleAccess,
	PropertyAcceleratedEnabled,
	PropertyAcceleratedThroughput,
	PropertyCertificateCheck,
	PropertyChecksumCheck,
	PropertyAPICallTimeout,
	PropertyAPICallAttemptTimeout,
	PropertyAccessKeyID,
	PropertySecretAccessKey,
	PropertySessionToken,
	PropertyCredentialsKind,
	PropertyRoleARN,
	PropertyRoleExternalID,
	PropertyRoleSessionName,
	PropertyRoleSessionTimeout,
}

// LoadProperties reads key/value files, later files taking precedence,
// and parses them with ParseProperties.
func LoadProperties(paths ...string) (*Config, error) {
	props := make(map[string]string)
	for _, path := range paths {
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, s3errors.NewError("config", fmt.Errorf("%w: %w", s3errors.ErrInvalidConfig, err)).
				WithKey(path)
		}
		for k, v := range values {
			props[k] = v
		}
	}
	return ParseProperties(props)
}

// LoadEnv reads properties from environment variables named after the
// property key, upper-cased with dots replaced by underscores and prefix
// prepended: with prefix "TS_", s3.region is read from TS_S3_REGION.
func LoadEnv(prefix string) (*Config, error) {
	props := make(map[string]string)
	for _, key := range propertyKeys {
		if value, ok := os.LookupEnv(EnvName(prefix, key)); ok {
			props[key] = value
		}
	}
	return ParseProperties(props)
}

// EnvName returns the environment variable LoadEnv reads key from.
func EnvName(prefix, key string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ParseProperties builds a Config from properties, starting from
// DefaultConfig. Unknown keys are ignored and empty values count as unset.
func ParseProperties(props map[string]string) (*Config, error) {
	p := properties(props)
	cfg := DefaultConfig()

	cfg.Region = p.get(PropertyRegion)

	if raw := p.get(PropertyEndpointURL); raw != "" {
		endpoint, err := url.Parse(raw)
		if err != nil {
			return nil, s3errors.NewConfigError(PropertyEndpointURL, err.Error())
		}
		cfg.Endpoint = endpoint
	}

	var err error
	if cfg.PathStyleAccess, err = p.optionalBool(PropertyPathStyleAccess); err != nil {
		return nil, err
	}
	if err := p.setBool(PropertyAcceleratedEnabled, &cfg.AcceleratedEnabled); err != nil {
		return nil, err
	}
	if err := p.setBool(PropertyCertificateCheck, &cfg.CertificateCheckEnabled); err != nil {
		return nil, err
	}
	if err := p.setBool(PropertyChecksumCheck, &cfg.ChecksumCheckEnabled); err != nil {
		return nil, err
	}
	if err := p.setFloat(PropertyAcceleratedThroughput, &cfg.AcceleratedUploadThroughputGbps); err != nil {
		return nil, err
	}
	if err := p.setDuration(PropertyAPICallTimeout, &cfg.APICallTimeout); err != nil {
		return nil, err
	}
	if err := p.setDuration(PropertyAPICallAttemptTimeout, &cfg.APICallAttemptTimeout); err != nil {
		return nil, err
	}

	if cfg.CredentialsProvider, err = credentialsFromProperties(p, cfg.Region); err != nil {
		return nil, err
	}

	return cfg, nil
}

// properties wraps raw key/value pairs with typed accessors. Setters leave
// the target untouched when the key is unset.
type properties map[string]string

func (p properties) get(key string) string {
	return strings.TrimSpace(p[key])
}

func (p properties) setBool(key string, target *bool) error {
	v, err := p.optionalBool(key)
	if err != nil || v == nil {
		return err
	}
	*target = *v
	return nil
}

func (p properties) optionalBool(key string) (*bool, error) {
	raw := p.get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, s3errors.NewConfigError(key, fmt.Sprintf("expected a boolean, got %q", raw))
	}
	return &v, nil
}

func (p properties) setFloat(key string, target *float64) error {
	raw := p.get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return s3errors.NewConfigError(key, fmt.Sprintf("expected a number, got %q", raw))
	}
	*target = v
	return nil
}

// setDuration accepts milliseconds ("30000") or a Go duration ("30s").
func (p properties) setDuration(key string, target *time.Duration) error {
	raw := p.get(key)
	if raw == "" {
		return nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*target = time.Duration(ms) * time.Millisecond
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return s3errors.NewConfigError(key, fmt.Sprintf("expected milliseconds or a duration, got %q", raw))
	}
	*target = v
	return nil
}
