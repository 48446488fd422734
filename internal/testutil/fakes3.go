package testutil

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const s3Namespace = "http://s3.amazonaws.com/doc/2006-03-01/"

// RecordedRequest captures the parts of a request tests assert on.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
}

type fakeObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	etag        string
	modified    time.Time
}

type fakeUpload struct {
	bucket      string
	key         string
	contentType string
	metadata    map[string]string
	parts       map[int][]byte
}

// FakeS3 is an in-memory, path-style S3 endpoint. It understands the object,
// bulk delete, list v2 and multipart calls both transports issue, and decodes
// aws-chunked request bodies.
type FakeS3 struct {
	Server *httptest.Server

	mu         sync.Mutex
	buckets    map[string]map[string]*fakeObject
	uploads    map[string]*fakeUpload
	nextUpload int
	requests   []RecordedRequest
	delay      time.Duration
	delayCount int
}

// NewFakeS3 starts a plain HTTP fake with the given buckets. The server is
// closed when the test ends.
func NewFakeS3(t *testing.T, buckets ...string) *FakeS3 {
	t.Helper()
	f := newFakeS3(buckets)
	f.Server = httptest.NewServer(f)
	t.Cleanup(f.Server.Close)
	return f
}

// NewFakeS3TLS starts a fake behind a self-signed TLS certificate.
func NewFakeS3TLS(t *testing.T, buckets ...string) *FakeS3 {
	t.Helper()
	f := newFakeS3(buckets)
	f.Server = httptest.NewTLSServer(f)
	t.Cleanup(f.Server.Close)
	return f
}

func newFakeS3(buckets []string) *FakeS3 {
	f := &FakeS3{
		buckets: make(map[string]map[string]*fakeObject),
		uploads: make(map[string]*fakeUpload),
	}
	for _, b := range buckets {
		f.buckets[b] = make(map[string]*fakeObject)
	}
	return f
}

// URL returns the server base URL.
func (f *FakeS3) URL() *url.URL {
	u, _ := url.Parse(f.Server.URL)
	return u
}

// Object returns a stored object's content.
func (f *FakeS3) Object(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// PutRaw stores an object directly, bypassing HTTP.
func (f *FakeS3) PutRaw(bucket, key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buckets[bucket] == nil {
		f.buckets[bucket] = make(map[string]*fakeObject)
	}
	f.buckets[bucket][key] = newFakeObject(data, "application/octet-stream", nil)
}

// Uploads returns the number of in-progress multipart uploads.
func (f *FakeS3) Uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

// Requests returns a copy of every request received so far.
func (f *FakeS3) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// Delay stalls the next count requests for d, or until the client gives up.
func (f *FakeS3) Delay(d time.Duration, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
	f.delayCount = count
}

// ServeHTTP implements http.Handler.
func (f *FakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if d := f.record(r); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	query := r.URL.Query()

	if bucket == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "path-style requests only")
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "IncompleteBody", err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if key == "" {
		f.serveBucket(w, r, bucket, query, body)
		return
	}

	if _, ok := f.buckets[bucket]; !ok {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
		return
	}

	switch {
	case r.Method == http.MethodPost && query.Has("uploads"):
		f.createUpload(w, r, bucket, key)
	case r.Method == http.MethodPut && query.Has("uploadId"):
		f.uploadPart(w, query, body)
	case r.Method == http.MethodPost && query.Has("uploadId"):
		f.completeUpload(w, query, body)
	case r.Method == http.MethodDelete && query.Has("uploadId"):
		f.abortUpload(w, query)
	case r.Method == http.MethodPut:
		f.putObject(w, r, bucket, key, body)
	case r.Method == http.MethodGet, r.Method == http.MethodHead:
		f.getObject(w, r, bucket, key)
	case r.Method == http.MethodDelete:
		delete(f.buckets[bucket], key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method)
	}
}

func (f *FakeS3) record(r *http.Request) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
	})
	if f.delayCount == 0 {
		return 0
	}
	f.delayCount--
	return f.delay
}

func (f *FakeS3) serveBucket(w http.ResponseWriter, r *http.Request, bucket string, query url.Values, body []byte) {
	switch {
	case r.Method == http.MethodPut:
		if _, ok := f.buckets[bucket]; !ok {
			f.buckets[bucket] = make(map[string]*fakeObject)
		}
		w.WriteHeader(http.StatusOK)
		return
	case r.Method == http.MethodGet && query.Has("location"):
		writeXML(w, http.StatusOK, struct {
			XMLName xml.Name `xml:"LocationConstraint"`
			NS      string   `xml:"xmlns,attr"`
		}{NS: s3Namespace})
		return
	}

	objects, ok := f.buckets[bucket]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
		return
	}

	switch {
	case r.Method == http.MethodPost && query.Has("delete"):
		f.deleteObjects(w, objects, body)
	case r.Method == http.MethodGet:
		f.listObjects(w, bucket, objects, query)
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method)
	}
}

func (f *FakeS3) putObject(w http.ResponseWriter, r *http.Request, bucket, key string, body []byte) {
	if !checkContentMD5(w, r, body) {
		return
	}
	obj := newFakeObject(body, r.Header.Get("Content-Type"), userMetadata(r.Header))
	f.buckets[bucket][key] = obj
	w.Header().Set("ETag", quote(obj.etag))
	w.WriteHeader(http.StatusOK)
}

func (f *FakeS3) getObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	obj, ok := f.buckets[bucket][key]
	if !ok {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
		return
	}

	data := obj.data
	status := http.StatusOK
	if spec := r.Header.Get("Range"); spec != "" {
		start, end, ok := parseRange(spec, int64(len(data)))
		if !ok {
			writeError(w, http.StatusRequestedRangeNotSatisfiable, "InvalidRange", "The requested range is not satisfiable")
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(data)))
		data = data[start : end+1]
		status = http.StatusPartialContent
	}

	h := w.Header()
	h.Set("ETag", quote(obj.etag))
	h.Set("Last-Modified", obj.modified.Format(http.TimeFormat))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Content-Type", obj.contentType)
	h.Set("Accept-Ranges", "bytes")
	for k, v := range obj.metadata {
		h.Set("X-Amz-Meta-"+k, v)
	}
	w.WriteHeader(status)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}

func (f *FakeS3) deleteObjects(w http.ResponseWriter, objects map[string]*fakeObject, body []byte) {
	var req struct {
		Quiet   bool `xml:"Quiet"`
		Objects []struct {
			Key string `xml:"Key"`
		} `xml:"Object"`
	}
	if err := xml.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "MalformedXML", err.Error())
		return
	}

	type deleted struct {
		Key string `xml:"Key"`
	}
	result := struct {
		XMLName xml.Name  `xml:"DeleteResult"`
		NS      string    `xml:"xmlns,attr"`
		Deleted []deleted `xml:"Deleted"`
	}{NS: s3Namespace}
	for _, obj := range req.Objects {
		delete(objects, obj.Key)
		if !req.Quiet {
			result.Deleted = append(result.Deleted, deleted{Key: obj.Key})
		}
	}
	writeXML(w, http.StatusOK, result)
}

type listEntry struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

func (f *FakeS3) listObjects(w http.ResponseWriter, bucket string, objects map[string]*fakeObject, query url.Values) {
	prefix := query.Get("prefix")
	after := query.Get("continuation-token")
	if after == "" {
		after = query.Get("start-after")
	}
	maxKeys := 1000
	if v, err := strconv.Atoi(query.Get("max-keys")); err == nil && v > 0 {
		maxKeys = v
	}

	keys := make([]string, 0, len(objects))
	for k := range objects {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	result := struct {
		XMLName               xml.Name    `xml:"ListBucketResult"`
		NS                    string      `xml:"xmlns,attr"`
		Name                  string      `xml:"Name"`
		Prefix                string      `xml:"Prefix"`
		KeyCount              int         `xml:"KeyCount"`
		MaxKeys               int         `xml:"MaxKeys"`
		IsTruncated           bool        `xml:"IsTruncated"`
		ContinuationToken     string      `xml:"ContinuationToken,omitempty"`
		NextContinuationToken string      `xml:"NextContinuationToken,omitempty"`
		Contents              []listEntry `xml:"Contents"`
	}{
		NS:                s3Namespace,
		Name:              bucket,
		Prefix:            prefix,
		MaxKeys:           maxKeys,
		ContinuationToken: query.Get("continuation-token"),
	}

	if len(keys) > maxKeys {
		keys = keys[:maxKeys]
		result.IsTruncated = true
		result.NextContinuationToken = keys[len(keys)-1]
	}
	for _, k := range keys {
		obj := objects[k]
		result.Contents = append(result.Contents, listEntry{
			Key:          k,
			LastModified: obj.modified.Format("2006-01-02T15:04:05.000Z"),
			ETag:         quote(obj.etag),
			Size:         int64(len(obj.data)),
			StorageClass: "STANDARD",
		})
	}
	result.KeyCount = len(result.Contents)

	writeXML(w, http.StatusOK, result)
}

func (f *FakeS3) createUpload(w http.ResponseWriter, r *http.Request, bucket, key string) {
	f.nextUpload++
	id := fmt.Sprintf("upload-%d", f.nextUpload)
	f.uploads[id] = &fakeUpload{
		bucket:      bucket,
		key:         key,
		contentType: r.Header.Get("Content-Type"),
		metadata:    userMetadata(r.Header),
		parts:       make(map[int][]byte),
	}

	writeXML(w, http.StatusOK, struct {
		XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
		NS       string   `xml:"xmlns,attr"`
		Bucket   string   `xml:"Bucket"`
		Key      string   `xml:"Key"`
		UploadID string   `xml:"UploadId"`
	}{NS: s3Namespace, Bucket: bucket, Key: key, UploadID: id})
}

func (f *FakeS3) uploadPart(w http.ResponseWriter, query url.Values, body []byte) {
	upload, ok := f.uploads[query.Get("uploadId")]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchUpload", "The specified upload does not exist")
		return
	}
	number, err := strconv.Atoi(query.Get("partNumber"))
	if err != nil || number < 1 {
		writeError(w, http.StatusBadRequest, "InvalidArgument", "invalid part number")
		return
	}
	upload.parts[number] = body
	w.Header().Set("ETag", quote(md5Hex(body)))
	w.WriteHeader(http.StatusOK)
}

func (f *FakeS3) completeUpload(w http.ResponseWriter, query url.Values, body []byte) {
	id := query.Get("uploadId")
	upload, ok := f.uploads[id]
	if !ok {
		writeError(w, http.StatusNotFound, "NoSuchUpload", "The specified upload does not exist")
		return
	}

	var req struct {
		Parts []struct {
			PartNumber int    `xml:"PartNumber"`
			ETag       string `xml:"ETag"`
		} `xml:"Part"`
	}
	if err := xml.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "MalformedXML", err.Error())
		return
	}

	var data []byte
	last := 0
	for _, p := range req.Parts {
		part, ok := upload.parts[p.PartNumber]
		if !ok || p.PartNumber <= last || strings.Trim(p.ETag, `"`) != md5Hex(part) {
			writeError(w, http.StatusBadRequest, "InvalidPart", fmt.Sprintf("part %d is invalid", p.PartNumber))
			return
		}
		last = p.PartNumber
		data = append(data, part...)
	}

	obj := newFakeObject(data, upload.contentType, upload.metadata)
	obj.etag = fmt.Sprintf("%s-%d", obj.etag, len(req.Parts))
	f.buckets[upload.bucket][upload.key] = obj
	delete(f.uploads, id)

	writeXML(w, http.StatusOK, struct {
		XMLName xml.Name `xml:"CompleteMultipartUploadResult"`
		NS      string   `xml:"xmlns,attr"`
		Bucket  string   `xml:"Bucket"`
		Key     string   `xml:"Key"`
		ETag    string   `xml:"ETag"`
	}{NS: s3Namespace, Bucket: upload.bucket, Key: upload.key, ETag: quote(obj.etag)})
}

func (f *FakeS3) abortUpload(w http.ResponseWriter, query url.Values) {
	id := query.Get("uploadId")
	if _, ok := f.uploads[id]; !ok {
		writeError(w, http.StatusNotFound, "NoSuchUpload", "The specified upload does not exist")
		return
	}
	delete(f.uploads, id)
	w.WriteHeader(http.StatusNoContent)
}

func newFakeObject(data []byte, contentType string, metadata map[string]string) *fakeObject {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &fakeObject{
		data:        data,
		contentType: contentType,
		metadata:    metadata,
		etag:        md5Hex(data),
		modified:    time.Now().UTC().Truncate(time.Second),
	}
}

// readBody returns the decoded request payload.
func readBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if strings.Contains(r.Header.Get("Content-Encoding"), "aws-chunked") ||
		strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return decodeAWSChunked(raw)
	}
	return raw, nil
}

// decodeAWSChunked strips chunk headers, signatures and trailers.
func decodeAWSChunked(raw []byte) ([]byte, error) {
	reader := bufio.NewReader(bytes.NewReader(raw))
	var out []byte
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}
		sizeField, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseInt(sizeField, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing chunk size %q: %w", sizeField, err)
		}
		if size == 0 {
			return out, nil
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(reader, chunk); err != nil {
			return nil, fmt.Errorf("reading chunk: %w", err)
		}
		out = append(out, chunk...)
		if _, err := reader.Discard(2); err != nil {
			return nil, fmt.Errorf("reading chunk terminator: %w", err)
		}
	}
}

func checkContentMD5(w http.ResponseWriter, r *http.Request, body []byte) bool {
	want := r.Header.Get("Content-MD5")
	if want == "" {
		return true
	}
	sum := md5.Sum(body)
	if base64.StdEncoding.EncodeToString(sum[:]) != want {
		writeError(w, http.StatusBadRequest, "BadDigest", "The Content-MD5 you specified did not match what we received.")
		return false
	}
	return true
}

func userMetadata(h http.Header) map[string]string {
	var metadata map[string]string
	for name, values := range h {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, "x-amz-meta-") || len(values) == 0 {
			continue
		}
		if metadata == nil {
			metadata = make(map[string]string)
		}
		metadata[strings.TrimPrefix(lower, "x-amz-meta-")] = values[0]
	}
	return metadata
}

func parseRange(spec string, size int64) (int64, int64, bool) {
	startField, endField, ok := strings.Cut(strings.TrimPrefix(spec, "bytes="), "-")
	if !ok {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(startField, 10, 64)
	if err != nil || start >= size {
		return 0, 0, false
	}
	end := size - 1
	if endField != "" {
		end, err = strconv.ParseInt(endField, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeXML(w, status, struct {
		XMLName   xml.Name `xml:"Error"`
		Code      string   `xml:"Code"`
		Message   string   `xml:"Message"`
		RequestID string   `xml:"RequestId"`
	}{Code: code, Message: message, RequestID: "fake"})
}

func writeXML(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func quote(etag string) string {
	return `"` + etag + `"`
}
