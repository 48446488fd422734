package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
)

// Credential provider kinds accepted by the aws.credentials.provider property.
const (
	CredentialsDefault   = "default"
	CredentialsStatic    = "static"
	CredentialsAnonymous = "anonymous"
	CredentialsSTS       = "sts"
)

const defaultRoleSessionName = "tiered-storage"

// credentialsFromProperties returns the provider the properties describe,
// or nil for the transport's default chain. Without an explicit kind, an
// access key selects static credentials and a role ARN selects sts.
func credentialsFromProperties(p properties, region string) (aws.CredentialsProvider, error) {
	kind := p.get(PropertyCredentialsKind)
	if kind == "" {
		switch {
		case p.get(PropertyRoleARN) != "":
			kind = CredentialsSTS
		case p.get(PropertyAccessKeyID) != "":
			kind = CredentialsStatic
		default:
			kind = CredentialsDefault
		}
	}

	switch kind {
	case CredentialsDefault:
		return nil, nil
	case CredentialsAnonymous:
		return aws.AnonymousCredentials{}, nil
	case CredentialsStatic:
		return staticCredentials(p)
	case CredentialsSTS:
		return assumeRoleCredentials(p, region)
	default:
		return nil, s3errors.NewConfigError(PropertyCredentialsKind,
			fmt.Sprintf("unknown credentials provider %q", kind))
	}
}

func staticCredentials(p properties) (aws.CredentialsProvider, error) {
	id, secret := p.get(PropertyAccessKeyID), p.get(PropertySecretAccessKey)
	if id == "" {
		return nil, s3errors.NewConfigError(PropertyAccessKeyID, "required for static credentials")
	}
	if secret == "" {
		return nil, s3errors.NewConfigError(PropertySecretAccessKey, "required for static credentials")
	}
	return credentials.NewStaticCredentialsProvider(id, secret, p.get(PropertySessionToken)), nil
}

// assumeRoleCredentials assumes the configured role. The role is assumed with
// the static keys when given, otherwise with the default chain. Nothing is
// fetched until the first request.
func assumeRoleCredentials(p properties, region string) (aws.CredentialsProvider, error) {
	roleARN := p.get(PropertyRoleARN)
	if roleARN == "" {
		return nil, s3errors.NewConfigError(PropertyRoleARN, "required for sts credentials")
	}

	var sessionDuration time.Duration
	if err := p.setDuration(PropertyRoleSessionTimeout, &sessionDuration); err != nil {
		return nil, err
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	if p.get(PropertyAccessKeyID) != "" {
		base, err := staticCredentials(p)
		if err != nil {
			return nil, err
		}
		loadOpts = append(loadOpts, config.WithCredentialsProvider(base))
	}

	baseCfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, s3errors.NewError("config", fmt.Errorf("%w: %w", s3errors.ErrInvalidConfig, err)).
			WithKey(PropertyRoleARN)
	}

	sessionName := p.get(PropertyRoleSessionName)
	if sessionName == "" {
		sessionName = defaultRoleSessionName
	}
	externalID := p.get(PropertyRoleExternalID)

	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(baseCfg), roleARN,
		func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = sessionName
			if externalID != "" {
				o.ExternalID = aws.String(externalID)
			}
			if sessionDuration > 0 {
				o.Duration = sessionDuration
			}
		})

	return aws.NewCredentialsCache(provider), nil
}
