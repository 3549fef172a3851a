// Package fetcher opens logger tables from disk and streams their rows,
// handling compression, character sets, delimiters and spreadsheets.
package fetcher

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// Compression of a table file, derived from its extension.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

// DetectCompression maps ".gz" and ".zst" suffixes to a Compression.
func DetectCompression(path string) Compression {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// TrimCompression strips a compression suffix from a file name.
func TrimCompression(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".gz", ".zstd", ".zst"} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// Open opens a text table for reading. Compressed files are decompressed
// transparently and non-UTF-8 content is decoded using the named charset
// (any WHATWG label, e.g. "windows-1252"). Closing the result closes every
// layer and the file.
func Open(path, charset string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	rc, err := Decode(f, DetectCompression(path), charset)
	if err != nil {
		f.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	return rc, nil
}

// Decode wraps r with decompression and charset decoding. The returned
// ReadCloser closes r.
func Decode(r io.ReadCloser, c Compression, charset string) (io.ReadCloser, error) {
	closers := []io.Closer{r}
	var src io.Reader = r

	switch c {
	case CompressionGzip:
		gz, err := gzip.NewReader(bufio.NewReader(r))
		if err != nil {
			return nil, eris.Wrap(err, "gzip: open stream")
		}
		closers = append([]io.Closer{gz}, closers...)
		src = gz
	case CompressionZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, eris.Wrap(err, "zstd: open stream")
		}
		closers = append([]io.Closer{closerFunc(func() error { zr.Close(); return nil })}, closers...)
		src = zr
	}

	if charset != "" && !isUTF8(charset) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: unsupported charset %q", charset)
		}
		src = enc.NewDecoder().Reader(src)
	}

	return &readCloser{Reader: src, closers: closers}, nil
}

func isUTF8(charset string) bool {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// readCloser closes its layers innermost first.
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
