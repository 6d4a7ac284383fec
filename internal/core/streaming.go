package core

// streaming.go prepares an uploaded file for the CSV reader without loading
// it into memory:
//
//   - A UTF-8 byte order mark at the start is dropped (Excel adds one)
//   - Invalid UTF-8 sequences are replaced with U+FFFD
//   - Bytes are counted, and reading stops with ErrFileTooLarge once the
//     stream passes the size limit, whatever size the client declared
//
// Use WrapForStreaming to apply all of them in the correct order.

import (
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewUTF8Decoder returns a reader that strips a leading BOM and repairs
// invalid UTF-8. A UTF-16 BOM switches decoding to UTF-16.
func NewUTF8Decoder(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// CountingReader tracks bytes read and enforces an optional limit.
type CountingReader struct {
	reader io.Reader
	read   atomic.Int64
	Limit  int64 // 0 means unlimited
}

// NewCountingReader creates a counting reader with an optional byte limit.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	total := r.read.Add(int64(n))
	if r.Limit > 0 && total > r.Limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, r.Limit)
	}
	return n, err
}

// BytesRead returns the number of bytes read so far. Safe to call from
// another goroutine while reading is in progress.
func (r *CountingReader) BytesRead() int64 {
	return r.read.Load()
}

// WrapForStreaming counts and limits the raw bytes, then decodes them.
// The returned counter reports raw upload bytes, not decoded ones.
func WrapForStreaming(r io.Reader, limit int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, limit)
	return NewUTF8Decoder(counter), counter
}
