package testutil

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// TestAccessKeyID and TestSecretAccessKey are accepted by the fake server and LocalStack.
const (
	TestAccessKeyID     = "test"
	TestSecretAccessKey = "test"
)

// StaticCredentials returns a provider with the test key pair.
func StaticCredentials() aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(TestAccessKeyID, TestSecretAccessKey, "")
}

// GenerateRandomData generates random bytes of the specified size.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rand.Intn(256))
	}
	return data
}

// GenerateTestKey generates a test object key with optional prefix.
// This helps ensure test isolation by using unique keys.
func GenerateTestKey(prefix string) string {
	timestamp := time.Now().UnixNano()
	random := rand.Int63n(100000)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%stest-object-%d-%d", prefix, timestamp, random)
}

// GenerateTestBucketName generates a DNS-compliant test bucket name.
func GenerateTestBucketName(prefix string) string {
	name := strings.ToLower(fmt.Sprintf("%s-%d-%d", prefix, time.Now().Unix(), rand.Int31n(10000)))
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// CalculateETag returns the unquoted ETag of a single-part upload of data.
func CalculateETag(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// CreateTestObject creates a list entry for mocked ListObjectsV2 responses.
func CreateTestObject(key string, size int64, lastModified time.Time) types.Object {
	return types.Object{
		Key:          aws.String(key),
		Size:         aws.Int64(size),
		LastModified: aws.Time(lastModified),
		ETag:         aws.String(fmt.Sprintf(`"%x"`, md5.Sum([]byte(key)))),
		StorageClass: types.ObjectStorageClassStandard,
	}
}

// CreateGetObjectOutput creates a GetObjectOutput streaming data.
func CreateGetObjectOutput(data []byte, contentType string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ETag:          aws.String(`"` + CalculateETag(data) + `"`),
		LastModified:  aws.Time(time.Now()),
	}
}
