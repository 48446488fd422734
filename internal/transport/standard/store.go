package standard

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/storage/s3/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

type idleCloser interface {
	CloseIdleConnections()
}

// Store implements s3types.ObjectStore on top of the S3 API client.
type Store struct {
	api    s3api.S3API
	closer idleCloser
}

var _ s3types.ObjectStore = (*Store)(nil)

// NewStore wraps api. httpClient is optional; when it can close idle
// connections, Close releases them.
func NewStore(api s3api.S3API, httpClient any) *Store {
	closer, _ := httpClient.(idleCloser)
	return &Store{
		api:    api,
		closer: closer,
	}
}

// PutObject uploads body as a single object.
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

	cfg := s3types.ApplyPutOptions(opts)
	if err := validation.ValidateMetadata(cfg.Metadata); err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(transport.ContentType(cfg.ContentType, body)),
		Metadata:    cfg.Metadata,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if cfg.StorageClass != "" {
		input.StorageClass = types.StorageClass(cfg.StorageClass)
	}

	out, err := s.api.PutObject(ctx, input)
	if err != nil {
		return nil, translate(transport.OpPut, bucket, key, err)
	}

	return &s3types.PutResult{
		ETag:      transport.TrimETag(aws.ToString(out.ETag)),
		VersionID: aws.ToString(out.VersionId),
	}, nil
}

// GetObject streams an object or a byte range of it.
func (s *Store) GetObject(ctx context.Context, bucket, key string, rng *s3types.ByteRange) (io.ReadCloser, error) {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return nil, err
	}
	if err := validation.ValidateRange(rng); err != nil {
		return nil, err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if rng != nil {
		input.Range = aws.String(rng.Header())
	}

	out, err := s.api.GetObject(ctx, input)
	if err != nil {
		return nil, translate(transport.OpGet, bucket, key, err)
	}

	return out.Body, nil
}

// HeadObject returns object metadata.
func (s *Store) HeadObject(ctx context.Context, bucket, key string) (*s3types.ObjectInfo, error) {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return nil, err
	}

	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate(transport.OpHead, bucket, key, err)
	}

	return &s3types.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         transport.TrimETag(aws.ToString(out.ETag)),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
		StorageClass: s3types.StorageClass(out.StorageClass),
		Metadata:     out.Metadata,
	}, nil
}

// DeleteObject removes a single object.
func (s *Store) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := validation.ValidateObject(bucket, key); err != nil {
		return err
	}

	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
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
		ids := make([]types.ObjectIdentifier, 0, len(batch))
		for _, key := range batch {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: ids,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return s3errors.NewError(transport.OpDeleteObjects, classify(err)).WithBucket(bucket)
		}

		if len(out.Errors) > 0 {
			failed := out.Errors[0]
			cause := fmt.Errorf("%s: %s", aws.ToString(failed.Code), aws.ToString(failed.Message))
			return s3errors.NewObjectError(transport.OpDeleteObjects, bucket, aws.ToString(failed.Key), cause).
				WithMessage(fmt.Sprintf("%d of %d keys failed", len(out.Errors), len(batch)))
		}
	}

	return nil
}

// ListObjects returns every object under prefix, following continuation tokens.
func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]s3types.ObjectInfo, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []s3types.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s3errors.NewError(transport.OpList, classify(err)).WithBucket(bucket)
		}
		for _, obj := range page.Contents {
			objects = append(objects, s3types.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         transport.TrimETag(aws.ToString(obj.ETag)),
				LastModified: aws.ToTime(obj.LastModified),
				StorageClass: s3types.StorageClass(obj.StorageClass),
			})
		}
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

	cfg := s3types.ApplyPutOptions(opts)
	if err := validation.ValidateMetadata(cfg.Metadata); err != nil {
		return "", err
	}

	input := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(transport.ContentType(cfg.ContentType, nil)),
		Metadata:    cfg.Metadata,
	}
	if cfg.StorageClass != "" {
		input.StorageClass = types.StorageClass(cfg.StorageClass)
	}

	out, err := s.api.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", translate(transport.OpCreateMultipartUpload, bucket, key, err)
	}

	return aws.ToString(out.UploadId), nil
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

	out, err := s.api.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return s3types.CompletedPart{}, translate(transport.OpUploadPart, bucket, key, err)
	}

	return s3types.CompletedPart{
		PartNumber: partNumber,
		ETag:       transport.TrimETag(aws.ToString(out.ETag)),
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

	completed := make([]types.CompletedPart, 0, len(parts))
	for _, part := range transport.SortedParts(parts) {
		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(part.PartNumber),
			ETag:       aws.String(part.ETag),
		})
	}

	out, err := s.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return nil, translate(transport.OpCompleteMultipartUpload, bucket, key, err)
	}

	return &s3types.PutResult{
		ETag:      transport.TrimETag(aws.ToString(out.ETag)),
		VersionID: aws.ToString(out.VersionId),
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

	_, err := s.api.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return translate(transport.OpAbortMultipartUpload, bucket, key, err)
	}

	return nil
}

// Transport reports the standard transport.
func (s *Store) Transport() s3types.TransportKind {
	return s3types.TransportStandard
}

// Close releases idle connections.
func (s *Store) Close() error {
	if s.closer != nil {
		s.closer.CloseIdleConnections()
	}
	return nil
}
