// Package s3types provides shared type definitions for the object-store client factory.
package s3types

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransportKind identifies which transport implementation backs a client.
type TransportKind int

const (
	// TransportStandard is the general-purpose HTTP transport with per-attempt timeouts.
	TransportStandard TransportKind = iota

	// TransportAccelerated is the high-throughput transport with parallel uploads.
	TransportAccelerated
)

// String returns the lower-case transport name.
func (k TransportKind) String() string {
	switch k {
	case TransportStandard:
		return "standard"
	case TransportAccelerated:
		return "accelerated"
	default:
		return fmt.Sprintf("TransportKind(%d)", int(k))
	}
}

// StorageClass represents the storage class for objects.
type StorageClass string

// Predefined storage classes
const (
	// StorageClassStandard is the default storage class
	StorageClassStandard StorageClass = "STANDARD"

	// StorageClassStandardIA provides infrequent access storage
	StorageClassStandardIA StorageClass = "STANDARD_IA"

	// StorageClassOneZoneIA provides one zone infrequent access storage
	StorageClassOneZoneIA StorageClass = "ONEZONE_IA"

	// StorageClassIntelligentTiering provides intelligent tiering storage
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"

	// StorageClassGlacierIR provides Glacier Instant Retrieval storage
	StorageClassGlacierIR StorageClass = "GLACIER_IR"
)

// ObjectStore is the operation set every constructed client exposes,
// regardless of the transport behind it.
//
// Implementations are safe for concurrent use by multiple goroutines.
// The caller owns the handle and must call Close when done with it.
type ObjectStore interface {
	// PutObject uploads body as a single object. size may be -1 when unknown.
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, opts ...PutOption) (*PutResult, error)

	// GetObject streams an object, or the inclusive byte range rng of it when rng is non-nil.
	// The caller must close the returned reader.
	GetObject(ctx context.Context, bucket, key string, rng *ByteRange) (io.ReadCloser, error)

	// HeadObject returns object metadata without fetching the body.
	HeadObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// DeleteObject removes a single object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error

	// DeleteObjects removes keys in batches and reports the first per-key failure.
	DeleteObjects(ctx context.Context, bucket string, keys []string) error

	// ListObjects returns every object whose key starts with prefix.
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)

	// CreateMultipartUpload starts a multipart upload and returns its upload ID.
	CreateMultipartUpload(ctx context.Context, bucket, key string, opts ...PutOption) (string, error)

	// UploadPart uploads one part of a multipart upload. Part numbers start at 1
	// and size must be known.
	UploadPart(
		ctx context.Context,
		bucket, key, uploadID string,
		partNumber int32,
		body io.Reader,
		size int64,
	) (CompletedPart, error)

	// CompleteMultipartUpload assembles the uploaded parts into the final object.
	CompleteMultipartUpload(
		ctx context.Context,
		bucket, key, uploadID string,
		parts []CompletedPart,
	) (*PutResult, error)

	// AbortMultipartUpload discards an in-progress multipart upload.
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error

	// Transport reports which transport backs this client.
	Transport() TransportKind

	// Close releases idle connections held by the client.
	Close() error
}

// ByteRange is an inclusive byte range of an object.
type ByteRange struct {
	Start int64
	End   int64
}

// Size returns the number of bytes covered by the range.
func (r ByteRange) Size() int64 {
	return r.End - r.Start + 1
}

// Header returns the HTTP Range header value for the range.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	// Key is the object key
	Key string

	// Size is the object size in bytes
	Size int64

	// ETag is the entity tag, without surrounding quotes
	ETag string

	// LastModified is the last modification time
	LastModified time.Time

	// ContentType is the MIME type of the object, when reported
	ContentType string

	// StorageClass is the storage class, when reported
	StorageClass StorageClass

	// Metadata holds user-defined metadata, when reported
	Metadata map[string]string
}

// PutResult is returned by single and multipart uploads.
type PutResult struct {
	// ETag of the stored object, without surrounding quotes
	ETag string

	// VersionID if versioning is enabled on the bucket
	VersionID string
}

// CompletedPart identifies an uploaded part of a multipart upload.
type CompletedPart struct {
	// PartNumber is the 1-based part number
	PartNumber int32

	// ETag returned by the service for the part
	ETag string
}

// PutOptionConfig holds options for uploads.
type PutOptionConfig struct {
	// ContentType overrides content type sniffing
	ContentType string

	// Metadata is stored with the object as user metadata
	Metadata map[string]string

	// StorageClass selects the storage class
	StorageClass StorageClass
}

// PutOption configures an upload.
type PutOption func(*PutOptionConfig)

// ApplyPutOptions folds opts into a fresh PutOptionConfig.
func ApplyPutOptions(opts []PutOption) PutOptionConfig {
	var cfg PutOptionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// CallMetrics describes one completed service call.
type CallMetrics struct {
	// Operation is the service operation name, e.g. "PutObject"
	Operation string

	// Duration covers the whole call including retries
	Duration time.Duration

	// Err is the call's error, classified with the errors package sentinels when possible
	Err error
}

// MetricPublisher receives per-call metrics from the standard transport.
// Implementations must be safe for concurrent use.
type MetricPublisher interface {
	PublishCall(ctx context.Context, m CallMetrics)
}

// FactoryConfig holds the configuration options for a client factory.
type FactoryConfig struct {
	// Logger receives construction logs; nil disables logging
	Logger *slog.Logger

	// MetricPublishers are attached to every standard-transport client
	MetricPublishers []MetricPublisher

	// Registerer receives the default Prometheus collector when no publisher is configured
	Registerer prometheus.Registerer
}

// FactoryOption configures a client factory.
type FactoryOption func(*FactoryConfig)
