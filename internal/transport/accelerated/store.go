package accelerated

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

// streamPartSize bounds the buffer used for uploads of unknown size.
// It caps such uploads at 10000 parts of this size.
const streamPartSize = 16 << 20

// Store implements s3types.ObjectStore on top of a minio client.
type Store struct {
	client    *minio.Client
	core      minio.Core
	transport *http.Transport
	threads   uint
	checksum  bool
}

var _ s3types.ObjectStore = (*Store)(nil)

// NewStore wraps client. tr is the transport behind client and may be nil.
// threads sets upload parallelism, zero keeps the minio default.
func NewStore(client *minio.Client, tr *http.Transport, threads uint, checksum bool) *Store {
	return &Store{
		client:    client,
		core:      minio.Core{Client: client},
		transport: tr,
		threads:   threads,
		checksum:  checksum,
	}
}

// Threads returns the upload parallelism the store was configured with.
func (s *Store) Threads() uint {
	return s.threads
}

func (s *Store) putOptions(body io.Reader, opts []s3types.PutOption) (minio.PutObjectOptions, error) {
	cfg := s3types.ApplyPutOptions(opts)
	if err := validation.ValidateMetadata(cfg.Metadata); err != nil {
		return minio.PutObjectOptions{}, err
	}
	return minio.PutObjectOptions{
		ContentType:    transport.ContentType(cfg.ContentType, body),
		UserMetadata:   cfg.Metadata,
		StorageClass:   string(cfg.StorageClass),
		NumThreads:     s.threads,
		SendContentMd5: s.checksum,
	}, nil
}

// PutObject uploads body, in parallel parts when it is large enough.
func (s *Store) PutObject(
	ctx context.Context,
	bucket, key string,
	body io.Reader,
	size int64,
	opts ...s3types.PutOption,
) (*s3types.PutResult, error) {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, s3errors.NewObjectError(transport.OpPut, bucket, key, s3errors.ErrInvalidInput).
			WithMessage("body cannot be nil")
	}

	putOpts, err := s.putOptions(body, opts)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		putOpts.PartSize = streamPartSize
	}

	info, err := s.client.PutObject(ctx, bucket, key, body, size, putOpts)
	if err != nil {
		return nil, translate(transport.OpPut, bucket, key, err)
	}

	return &s3types.PutResult{
		ETag:      transport.TrimETag(info.ETag),
		VersionID: info.VersionID,
	}, nil
}

// GetObject streams an object or a byte range of it. The request is sent
// before GetObject returns, so a missing object or an unsatisfiable range
// is reported here rather than on the first Read.
func (s *Store) GetObject(ctx context.Context, bucket, key string, rng *s3types.ByteRange) (io.ReadCloser, error) {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return nil, err
	}
	if err := validation.ValidateRange(rng); err != nil {
		return nil, err
	}

	getOpts := minio.GetObjectOptions{Checksum: s.checksum}
	if rng != nil {
		if err := getOpts.SetRange(rng.Start, rng.End); err != nil {
			return nil, s3errors.NewObjectError(transport.OpGet, bucket, key, fmt.Errorf("%w: %w", s3errors.ErrInvalidRange, err))
		}
	}

	body, _, _, err := s.core.GetObject(ctx, bucket, key, getOpts)
	if err != nil {
		return nil, translate(transport.OpGet, bucket, key, err)
	}

	return body, nil
}

// HeadObject returns object metadata.
func (s *Store) HeadObject(ctx context.Context, bucket, key string) (*s3types.ObjectInfo, error) {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return nil, err
	}

	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{Checksum: s.checksum})
	if err != nil {
		return nil, translate(transport.OpHead, bucket, key, err)
	}

	var metadata map[string]string
	if len(info.UserMetadata) > 0 {
		metadata = make(map[string]string, len(info.UserMetadata))
		for k, v := range info.UserMetadata {
			metadata[strings.ToLower(k)] = v
		}
	}

	return &s3types.ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ETag:         transport.TrimETag(info.ETag),
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
		StorageClass: s3types.StorageClass(info.StorageClass),
		Metadata:     metadata,
	}, nil
}

// DeleteObject removes a single object.
func (s *Store) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		err = translate(transport.OpDelete, bucket, key, err)
		if s3errors.IsObjectNotFound(err) {
			return nil
		}
		return err
	}

	return nil
}

// DeleteObjects removes keys in batches of up to 1000.
func (s *Store) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	for _, key := range keys {
		if err := validation.ValidateObjectKey(key); err != nil {
			return err
		}
	}

	for _, batch := range transport.Batches(keys, transport.MaxDeleteBatch) {
		objects := make(chan minio.ObjectInfo, len(batch))
		for _, key := range batch {
			objects <- minio.ObjectInfo{Key: key}
		}
		close(objects)

		var first *minio.RemoveObjectError
		failed := 0
		for result := range s.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
			if first == nil {
				first = &result
			}
			failed++
		}

		if first != nil {
			return s3errors.NewObjectError(transport.OpDeleteObjects, bucket, first.ObjectName, classify(first.Err)).
				WithMessage(fmt.Sprintf("%d of %d keys failed", failed, len(batch)))
		}
	}

	return nil
}

// ListObjects returns every object under prefix.
func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]s3types.ObjectInfo, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []s3types.ObjectInfo
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, s3errors.NewError(transport.OpList, classify(obj.Err)).WithBucket(bucket)
		}
		objects = append(objects, s3types.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         transport.TrimETag(obj.ETag),
			LastModified: obj.LastModified,
			StorageClass: s3types.StorageClass(obj.StorageClass),
		})
	}

	return objects, nil
}

// CreateMultipartUpload starts a multipart upload.
func (s *Store) CreateMultipartUpload(
	ctx context.Context,
	bucket, key string,
	opts ...s3types.PutOption,
) (string, error) {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return "", err
	}

	putOpts, err := s.putOptions(nil, opts)
	if err != nil {
		return "", err
	}

	uploadID, err := s.core.NewMultipartUpload(ctx, bucket, key, putOpts)
	if err != nil {
		return "", translate(transport.OpCreateMultipartUpload, bucket, key, err)
	}

	return uploadID, nil
}

// UploadPart uploads one part of a multipart upload.
func (s *Store) UploadPart(
	ctx context.Context,
	bucket, key, uploadID string,
	partNumber int32,
	body io.Reader,
	size int64,
) (s3types.CompletedPart, error) {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return s3types.CompletedPart{}, err
	}
	if err := validation.ValidatePart(uploadID, partNumber); err != nil {
		return s3types.CompletedPart{}, err
	}
	if body == nil || size < 0 {
		return s3types.CompletedPart{}, s3errors.NewObjectError(transport.OpUploadPart, bucket, key, s3errors.ErrInvalidInput).
			WithMessage("part body and size are required")
	}

	part, err := s.core.PutObjectPart(ctx, bucket, key, uploadID, int(partNumber), body, size, minio.PutObjectPartOptions{})
	if err != nil {
		return s3types.CompletedPart{}, translate(transport.OpUploadPart, bucket, key, err)
	}

	return s3types.CompletedPart{
		PartNumber: partNumber,
		ETag:       transport.TrimETag(part.ETag),
	}, nil
}

// CompleteMultipartUpload assembles parts, in part-number order, into the final object.
func (s *Store) CompleteMultipartUpload(
	ctx context.Context,
	bucket, key, uploadID string,
	parts []s3types.CompletedPart,
) (*s3types.PutResult, error) {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return nil, err
	}
	if uploadID == "" || len(parts) == 0 {
		return nil, s3errors.NewObjectError(transport.OpCompleteMultipartUpload, bucket, key, s3errors.ErrInvalidInput).
			WithMessage("upload ID and at least one part are required")
	}

	completed := make([]minio.CompletePart, 0, len(parts))
	for _, part := range transport.SortedParts(parts) {
		completed = append(completed, minio.CompletePart{
			PartNumber: int(part.PartNumber),
			ETag:       part.ETag,
		})
	}

	info, err := s.core.CompleteMultipartUpload(ctx, bucket, key, uploadID, completed, minio.PutObjectOptions{})
	if err != nil {
		return nil, translate(transport.OpCompleteMultipartUpload, bucket, key, err)
	}

	return &s3types.PutResult{
		ETag:      transport.TrimETag(info.ETag),
		VersionID: info.VersionID,
	}, nil
}

// AbortMultipartUpload discards an in-progress multipart upload.
func (s *Store) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return err
	}
	if uploadID == "" {
		return s3errors.NewObjectError(transport.OpAbortMultipartUpload, bucket, key, s3errors.ErrInvalidInput).
			WithMessage("upload ID cannot be empty")
	}

	if err := s.core.AbortMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		return translate(transport.OpAbortMultipartUpload, bucket, key, err)
	}

	return nil
}

// Transport reports the accelerated transport.
func (s *Store) Transport() s3types.TransportKind {
	return s3types.TransportAccelerated
}

// Close releases idle connections.
func (s *Store) Close() error {
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	return nil
}
