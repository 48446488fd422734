package accelerated

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// newCredentials adapts provider to minio. A nil provider selects the
// environment, shared credentials file and instance role chain.
func newCredentials(provider aws.CredentialsProvider) *credentials.Credentials {
	switch {
	case provider == nil:
		return credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	case aws.IsCredentialsProvider(provider, (*aws.AnonymousCredentials)(nil)):
		return credentials.NewStatic("", "", "", credentials.SignatureAnonymous)
	default:
		return credentials.New(&providerBridge{provider: provider})
	}
}

// providerBridge exposes an aws.CredentialsProvider as a minio provider.
type providerBridge struct {
	provider aws.CredentialsProvider

	mu      sync.Mutex
	current aws.Credentials
	fetched bool
}

// Retrieve fetches credentials from the wrapped provider.
func (p *providerBridge) Retrieve() (credentials.Value, error) {
	return p.retrieve(context.Background())
}

// RetrieveWithCredContext fetches credentials from the wrapped provider.
// The wrapped provider brings its own HTTP client, so cc is not used.
func (p *providerBridge) RetrieveWithCredContext(_ *credentials.CredContext) (credentials.Value, error) {
	return p.retrieve(context.Background())
}

// IsExpired reports whether the last fetched credentials have expired.
func (p *providerBridge) IsExpired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.fetched || p.current.Expired()
}

func (p *providerBridge) retrieve(ctx context.Context) (credentials.Value, error) {
	creds, err := p.provider.Retrieve(ctx)
	if err != nil {
		return credentials.Value{}, err
	}

	p.mu.Lock()
	p.current = creds
	p.fetched = true
	p.mu.Unlock()

	value := credentials.Value{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		SignerType:      credentials.SignatureV4,
	}
	if creds.CanExpire {
		value.Expiration = creds.Expires
	}
	if creds.AccessKeyID == "" && creds.SecretAccessKey == "" {
		value.SignerType = credentials.SignatureAnonymous
	}
	return value, nil
}
