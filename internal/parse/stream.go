package parse

// stream.go provides the reader wrappers applied in front of every parser:
//
//   - decodeReader: transcodes the configured character set to UTF-8 and
//     strips a leading byte-order mark
//   - CountingReader: tracks bytes read for progress reporting
//
// Wrappers never close the underlying stream; lifetime management stays with
// the caller (re-reading a seekable stream, size-limiting upstream, tests).

import (
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeReader wraps r with a decoder for the named character set. Empty or
// unrecognized names fall back to UTF-8. A UTF byte-order mark, when
// present, overrides the configured encoding and is not emitted.
func decodeReader(r io.Reader, encodingName string) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(resolveEncoding(encodingName).NewDecoder()))
}

// resolveEncoding maps an IANA character set name to its encoding.
func resolveEncoding(name string) encoding.Encoding {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		// Unknown names are not an error; the caller asked for a decoder
		// and UTF-8 is the documented fallback.
		return unicode.UTF8
	}
	return enc
}

// CountingReader wraps an io.Reader to track bytes consumed. Used by
// callers that report parse progress against a known stream size.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // 0 if unknown
}

// NewCountingReader creates a counting reader with an optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if the total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}
