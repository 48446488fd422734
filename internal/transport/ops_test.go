package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/input-output-hk/catalyst-forge-libs/storage/s3/s3types"
)

func TestTrimETag(t *testing.T) {
	assert.Equal(t, "abc", TrimETag(`"abc"`))
	assert.Equal(t, "abc", TrimETag("abc"))
	assert.Equal(t, "", TrimETag(""))
}

func TestSortedParts(t *testing.T) {
	parts := []s3types.CompletedPart{
		{PartNumber: 3, ETag: "c"},
		{PartNumber: 1, ETag: "a"},
		{PartNumber: 2, ETag: "b"},
	}

	sorted := SortedParts(parts)

	assert.Equal(t, []int32{1, 2, 3}, []int32{sorted[0].PartNumber, sorted[1].PartNumber, sorted[2].PartNumber})
	assert.Equal(t, int32(3), parts[0].PartNumber, "input must not be reordered")
}

func TestBatches(t *testing.T) {
	tests := []struct {
		name  string
		keys  int
		size  int
		sizes []int
	}{
		{"empty", 0, 2, []int{}},
		{"exact", 4, 2, []int{2, 2}},
		{"remainder", 5, 2, []int{2, 2, 1}},
		{"single", 1, 1000, []int{1}},
		{"limit_plus_one", MaxDeleteBatch + 1, MaxDeleteBatch, []int{MaxDeleteBatch, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := make([]string, tt.keys)
			got := Batches(keys, tt.size)

			sizes := make([]int, 0, len(got))
			for _, batch := range got {
				sizes = append(sizes, len(batch))
			}
			assert.Equal(t, tt.sizes, sizes)
		})
	}
}
