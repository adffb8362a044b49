package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes the Brotli middleware. Responses shorter than
// MinLength are sent uncompressed.
type BrotliConfig struct {
	Quality   int
	Skipper   func(c *gin.Context) bool
	MinLength int
}

var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

type encodeMode int

const (
	modeUndecided encodeMode = iota
	modePlain
	modeBrotli
)

// brotliWriter buffers the start of a body until it knows whether the
// response is long enough to be worth compressing.
type brotliWriter struct {
	gin.ResponseWriter
	quality   int
	minLength int
	mode      encodeMode
	buf       []byte
	enc       *brotli.Writer
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	switch bw.mode {
	case modePlain:
		return bw.ResponseWriter.Write(data)
	case modeBrotli:
		return bw.enc.Write(data)
	}

	bw.buf = append(bw.buf, data...)
	if len(bw.buf) < bw.minLength {
		return len(data), nil
	}
	if err := bw.decide(modeBrotli); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// decide fixes the encoding and releases whatever was buffered.
func (bw *brotliWriter) decide(mode encodeMode) error {
	bw.mode = mode
	pending := bw.buf
	bw.buf = nil

	if mode == modeBrotli {
		h := bw.ResponseWriter.Header()
		h.Set("Content-Encoding", "br")
		h.Del("Content-Length")
		bw.enc = brotli.NewWriterLevel(bw.ResponseWriter, bw.quality)
		if len(pending) == 0 {
			return nil
		}
		_, err := bw.enc.Write(pending)
		return err
	}

	if len(pending) == 0 {
		return nil
	}
	_, err := bw.ResponseWriter.Write(pending)
	return err
}

// Flush lets streaming handlers push data out. An undecided short body is
// committed uncompressed so it is not held back.
func (bw *brotliWriter) Flush() {
	switch bw.mode {
	case modeUndecided:
		_ = bw.decide(modePlain)
	case modeBrotli:
		_ = bw.enc.Flush()
	}
	bw.ResponseWriter.Flush()
}

// finish is called once the handler chain has returned.
func (bw *brotliWriter) finish() error {
	switch bw.mode {
	case modeUndecided:
		return bw.decide(modePlain)
	case modeBrotli:
		return bw.enc.Close()
	}
	return nil
}

// Brotli compresses responses for clients that accept "br".
func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		if isStreaming(c) || (cfg.Skipper != nil && cfg.Skipper(c)) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			quality:        cfg.Quality,
			minLength:      cfg.MinLength,
		}
		c.Writer = bw

		c.Next()

		if err := bw.finish(); err != nil {
			_ = c.Error(err)
		}
	}
}

// SkipSuffixes returns a Skipper matching request paths that end with any
// of the suffixes, e.g. binary exports that are already compressed.
func SkipSuffixes(suffixes ...string) func(c *gin.Context) bool {
	return func(c *gin.Context) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(c.Request.URL.Path, s) {
				return true
			}
		}
		return false
	}
}

// isStreaming matches SSE and WebSocket upgrades, which cannot be buffered.
func isStreaming(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		// Drop any quality parameter, e.g. "br;q=0.8".
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
