// Package accelerated implements the high-throughput transport on top of
// minio-go. Uploads of known size above the part threshold are split into
// parts and sent over parallel connections; the number of connections is
// derived from the configured target throughput.
package accelerated
