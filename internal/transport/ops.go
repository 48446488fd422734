package transport

import (
	"slices"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

// Operation names used in errors by every transport.
const (
	OpPut                     = "put"
	OpGet                     = "get"
	OpHead                    = "head"
	OpDelete                  = "delete"
	OpDeleteObjects           = "deleteObjects"
	OpList                    = "list"
	OpCreateMultipartUpload   = "createMultipartUpload"
	OpUploadPart              = "uploadPart"
	OpCompleteMultipartUpload = "completeMultipartUpload"
	OpAbortMultipartUpload    = "abortMultipartUpload"
)

// MaxDeleteBatch is the largest number of keys a single bulk delete may carry.
const MaxDeleteBatch = 1000

// TrimETag strips the quotes services put around entity tags.
func TrimETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// SortedParts returns a copy of parts ordered by part number.
func SortedParts(parts []s3types.CompletedPart) []s3types.CompletedPart {
	sorted := slices.Clone(parts)
	slices.SortFunc(sorted, func(a, b s3types.CompletedPart) int {
		return int(a.PartNumber - b.PartNumber)
	})
	return sorted
}

// Batches splits keys into consecutive slices of at most size keys.
func Batches(keys []string, size int) [][]string {
	batches := make([][]string, 0, (len(keys)+size-1)/size)
	for len(keys) > size {
		batches = append(batches, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		batches = append(batches, keys)
	}
	return batches
}
