package standard

import (
	"crypto/tls"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
)

// NewHTTPClient returns the SDK's default HTTP client.
func NewHTTPClient() *awshttp.BuildableClient {
	return awshttp.NewBuildableClient()
}

// NewTrustAllHTTPClient returns an HTTP client whose transport accepts any
// server certificate. It is meant for test and private endpoints only.
func NewTrustAllHTTPClient() *awshttp.BuildableClient {
	return awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
		if tr.TLSClientConfig == nil {
			tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		tr.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // explicit opt-in via certificate check flag
	})
}
