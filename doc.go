// Package s3 builds object-store clients for tiered storage.
//
// A Config describes the target service and the transport tuning. BuildFor
// turns it into an s3types.ObjectStore backed by one of two transports:
//
//   - the standard transport (aws-sdk-go-v2) with whole-call and per-attempt
//     timeouts and a per-call metric publisher
//   - the accelerated transport (minio-go) with a tuned connection pool and
//     parallel multipart uploads sized from a throughput target
//
// The transport is selected by Config.AcceleratedEnabled alone. The usage
// mode passed to BuildFor only gates the upload throughput target.
//
// Example:
//
//	cfg := s3.DefaultConfig()
//	cfg.Region = "eu-west-1"
//	cfg.AcceleratedEnabled = true
//	cfg.AcceleratedUploadThroughputGbps = 10
//
//	store, err := s3.BuildFor(cfg, s3.ClientTypeUpload)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// Configuration can also be read from key/value properties, see
// LoadProperties and LoadEnv.
package s3
