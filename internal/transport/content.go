package transport

import (
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is used when no content type is given and none can be sniffed.
const DefaultContentType = "application/octet-stream"

// sniffLen matches the number of bytes mimetype inspects by default.
const sniffLen = 3072

// ContentType resolves the content type for an upload. An explicit type wins.
// Otherwise a seekable body is sniffed and rewound to where it started;
// unseekable bodies are never read ahead.
func ContentType(explicit string, body io.Reader) string {
	if explicit != "" {
		return explicit
	}

	seeker, ok := body.(io.ReadSeeker)
	if !ok {
		return DefaultContentType
	}

	start, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return DefaultContentType
	}

	buf := make([]byte, sniffLen)
	n, _ := io.ReadFull(seeker, buf)
	if _, err := seeker.Seek(start, io.SeekStart); err != nil {
		return DefaultContentType
	}
	if n == 0 {
		return DefaultContentType
	}

	return mimetype.Detect(buf[:n]).String()
}
