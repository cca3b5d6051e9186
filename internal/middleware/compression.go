package middleware

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the smallest declared Content-Length worth compressing.
	// Responses without a Content-Length are always eligible.
	MinSize int
	// GzipLevel is the gzip level (gzip.BestSpeed to gzip.BestCompression)
	GzipLevel int
	// BrotliLevel is the brotli quality (0 to 11)
	BrotliLevel int
	// CompressibleTypes is a list of content types that should be compressed
	CompressibleTypes []string
}

// DefaultCompressionConfig returns sensible defaults for compression.
// Images are deliberately absent: they are already compressed and must keep
// the Content-Length the proxy computed.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:     256,
		GzipLevel:   gzip.DefaultCompression,
		BrotliLevel: brotli.DefaultCompression,
		CompressibleTypes: []string{
			"text/html",
			"text/plain",
			"application/json",
			"image/svg+xml",
		},
	}
}

const (
	encodingBrotli = "br"
	encodingGzip   = "gzip"
)

var (
	gzipWriterPools   sync.Map // level -> *sync.Pool
	brotliWriterPools sync.Map
)

func pooled(pools *sync.Map, level int, create func() io.WriteCloser) *sync.Pool {
	if p, ok := pools.Load(level); ok {
		return p.(*sync.Pool)
	}
	p, _ := pools.LoadOrStore(level, &sync.Pool{New: func() interface{} { return create() }})
	return p.(*sync.Pool)
}

type resetWriter interface {
	io.WriteCloser
	Reset(io.Writer)
}

func (c CompressionConfig) writerPool(encoding string) *sync.Pool {
	if encoding == encodingBrotli {
		level := c.BrotliLevel
		return pooled(&brotliWriterPools, level, func() io.WriteCloser {
			return brotli.NewWriterLevel(io.Discard, level)
		})
	}
	level := c.GzipLevel
	return pooled(&gzipWriterPools, level, func() io.WriteCloser {
		w, err := gzip.NewWriterLevel(io.Discard, level)
		if err != nil {
			w = gzip.NewWriter(io.Discard)
		}
		return w
	})
}

// negotiateEncoding picks brotli over gzip when the client accepts both
func negotiateEncoding(acceptEncoding string) string {
	var gzipOK, brOK bool
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v <= 0 {
				continue
			}
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case encodingBrotli:
			brOK = true
		case encodingGzip:
			gzipOK = true
		}
	}
	switch {
	case brOK:
		return encodingBrotli
	case gzipOK:
		return encodingGzip
	default:
		return ""
	}
}

// compressResponseWriter decides on compression when the header is
// committed, so bodies that are not compressed pass straight through
type compressResponseWriter struct {
	http.ResponseWriter
	config      CompressionConfig
	encoding    string
	pool        *sync.Pool
	encoder     resetWriter
	wroteHeader bool
}

func newCompressResponseWriter(w http.ResponseWriter, config CompressionConfig, encoding string) *compressResponseWriter {
	return &compressResponseWriter{
		ResponseWriter: w,
		config:         config,
		encoding:       encoding,
	}
}

// WriteHeader decides on compression and commits the status
func (c *compressResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true

	if c.shouldCompress(statusCode) {
		h := c.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", c.encoding)
		h.Add("Vary", "Accept-Encoding")

		c.pool = c.config.writerPool(c.encoding)
		c.encoder = c.pool.Get().(resetWriter)
		c.encoder.Reset(c.ResponseWriter)
	}

	c.ResponseWriter.WriteHeader(statusCode)
}

// Write compresses when the header decision said so
func (c *compressResponseWriter) Write(data []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.encoder != nil {
		return c.encoder.Write(data)
	}
	return c.ResponseWriter.Write(data)
}

func (c *compressResponseWriter) shouldCompress(statusCode int) bool {
	switch {
	case statusCode < http.StatusOK,
		statusCode == http.StatusNoContent,
		statusCode == http.StatusPartialContent,
		statusCode == http.StatusNotModified:
		return false
	}

	h := c.Header()
	if h.Get("Content-Encoding") != "" || h.Get("Content-Range") != "" {
		return false
	}
	if cl := h.Get("Content-Length"); cl != "" {
		if n, err := strconv.Atoi(cl); err == nil && n < c.config.MinSize {
			return false
		}
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(h.Get("Content-Type"), ";")[0]))
	if mediaType == "" {
		return false
	}
	for _, compressible := range c.config.CompressibleTypes {
		if mediaType == compressible {
			return true
		}
	}
	return false
}

// Close flushes the encoder and returns it to the pool
func (c *compressResponseWriter) Close() error {
	if c.encoder == nil {
		return nil
	}
	err := c.encoder.Close()
	c.encoder.Reset(io.Discard)
	c.pool.Put(c.encoder)
	c.encoder = nil
	return err
}

// Flush implements http.Flusher
func (c *compressResponseWriter) Flush() {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.encoder != nil {
		if f, ok := c.encoder.(interface{ Flush() error }); ok {
			_ = f.Flush()
		}
	}
	if flusher, ok := c.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (c *compressResponseWriter) Unwrap() http.ResponseWriter {
	return c.ResponseWriter
}

// Compression returns a middleware that compresses textual responses with
// brotli or gzip, whichever the client prefers
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
			if encoding == "" || r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}

			cw := newCompressResponseWriter(w, config, encoding)
			defer func() { _ = cw.Close() }()

			next.ServeHTTP(cw, r)
		})
	}
}
