package s3

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/transport/accelerated"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/transport/standard"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

// Factory builds object-store clients. It holds no per-build state and is
// safe for concurrent use.
type Factory struct {
	logger     *slog.Logger
	publishers []s3types.MetricPublisher
	collector  *metrics.Collector

	newStandard    func() transport.StandardBuilder
	newAccelerated func() transport.AcceleratedBuilder
}

// NewFactory creates a Factory with the given options.
//
// Without WithMetricPublisher the factory creates a metrics.Collector and
// registers it with the registerer from WithMetricsRegisterer, if any.
func NewFactory(opts ...s3types.FactoryOption) *Factory {
	var cfg s3types.FactoryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Factory{
		logger:     cfg.Logger,
		publishers: cfg.MetricPublishers,
		newStandard: func() transport.StandardBuilder {
			return standard.NewBuilder()
		},
		newAccelerated: func() transport.AcceleratedBuilder {
			return accelerated.NewBuilder()
		},
	}

	if len(f.publishers) == 0 {
		collector, err := metrics.NewCollector(cfg.Registerer)
		if err != nil {
			if f.logger != nil {
				f.logger.Warn("metrics collector not registered", "error", err)
			}
			collector = metrics.New()
		}
		f.collector = collector
		f.publishers = []s3types.MetricPublisher{collector}
	}

	return f
}

// Collector returns the collector the factory created, or nil when
// publishers were supplied with WithMetricPublisher.
func (f *Factory) Collector() *metrics.Collector {
	return f.collector
}

// Build is BuildFor with ClientTypeDownload.
func (f *Factory) Build(cfg *Config) (s3types.ObjectStore, error) {
	return f.BuildFor(cfg, ClientTypeDownload)
}

// BuildFor creates a client for cfg. The transport is chosen by
// cfg.AcceleratedEnabled. Builder errors are returned unchanged and no
// client is returned with them.
func (f *Factory) BuildFor(cfg *Config, clientType ClientType) (s3types.ObjectStore, error) {
	if cfg == nil {
		return nil, s3errors.NewError("build", s3errors.ErrInvalidConfig).WithMessage("config cannot be nil")
	}

	kind := cfg.Transport()
	if f.logger != nil {
		f.logger.Debug("building object-store client",
			"transport", kind.String(),
			"client_type", clientType.String(),
			"region", cfg.Region,
			"endpoint_override", cfg.Endpoint != nil)
	}

	var (
		store s3types.ObjectStore
		err   error
	)
	switch kind {
	case s3types.TransportAccelerated:
		store, err = f.buildAccelerated(cfg, clientType)
	default:
		store, err = f.buildStandard(cfg)
	}
	if err != nil {
		if f.logger != nil {
			f.logger.Error("failed to build object-store client",
				"transport", kind.String(),
				"region", cfg.Region,
				"error", err)
		}
		return nil, err
	}

	return store, nil
}

func (f *Factory) buildAccelerated(cfg *Config, clientType ClientType) (s3types.ObjectStore, error) {
	b := f.newAccelerated()

	b.Region(cfg.Region)
	if cfg.Endpoint != nil {
		b.EndpointOverride(cfg.Endpoint)
	}
	if cfg.PathStyleAccess != nil {
		b.ForcePathStyle(*cfg.PathStyleAccess)
	}
	if clientType == ClientTypeUpload && cfg.AcceleratedUploadThroughputGbps > 0 {
		b.TargetThroughputGbps(cfg.AcceleratedUploadThroughputGbps)
	}
	b.HTTPConfiguration(transport.HTTPConfiguration{
		TrustAllCertificates: !cfg.CertificateCheckEnabled,
		ConnectionTimeout:    cfg.APICallTimeout,
	})
	b.ChecksumValidationEnabled(cfg.ChecksumCheckEnabled)
	if cfg.CredentialsProvider != nil {
		b.CredentialsProvider(cfg.CredentialsProvider)
	}

	return b.Build()
}

func (f *Factory) buildStandard(cfg *Config) (s3types.ObjectStore, error) {
	b := f.newStandard()

	b.Region(cfg.Region)
	if cfg.Endpoint != nil {
		b.EndpointOverride(cfg.Endpoint)
	}
	if cfg.PathStyleAccess != nil {
		b.ForcePathStyle(*cfg.PathStyleAccess)
	}
	b.HTTPClient(standard.NewHTTPClient())
	if !cfg.CertificateCheckEnabled {
		b.HTTPClient(standard.NewTrustAllHTTPClient())
	}
	b.ServiceConfiguration(func(c *transport.ServiceConfiguration) {
		c.ChecksumValidationEnabled = cfg.ChecksumCheckEnabled
	})
	if cfg.CredentialsProvider != nil {
		b.CredentialsProvider(cfg.CredentialsProvider)
	}
	b.OverrideConfiguration(func(c *transport.OverrideConfiguration) {
		for _, publisher := range f.publishers {
			c.AddMetricPublisher(publisher)
		}
		c.APICallTimeout = cfg.APICallTimeout
		c.APICallAttemptTimeout = cfg.APICallAttemptTimeout
	})

	return b.Build()
}

var defaultFactory = sync.OnceValue(func() *Factory {
	return NewFactory(WithMetricsRegisterer(prometheus.DefaultRegisterer))
})

// Build creates a download client for cfg with the default factory.
func Build(cfg *Config) (s3types.ObjectStore, error) {
	return defaultFactory().Build(cfg)
}

// BuildFor creates a client for cfg and clientType with the default factory.
// The default factory registers its metrics collector with
// prometheus.DefaultRegisterer.
func BuildFor(cfg *Config, clientType ClientType) (s3types.ObjectStore, error) {
	return defaultFactory().BuildFor(cfg, clientType)
}
