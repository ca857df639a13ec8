package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// compressResponseWriter wraps http.ResponseWriter so body writes pass
// through a compressor.
type compressResponseWriter struct {
	io.Writer
	http.ResponseWriter
	wroteHeader bool
}

func (w *compressResponseWriter) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *compressResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.Writer.Write(b)
}

// Writer pools, one per encoding, to reduce allocations.
var (
	gzPool = sync.Pool{New: func() any { return gzip.NewWriter(io.Discard) }}
	brPool = sync.Pool{New: func() any { return brotli.NewWriter(io.Discard) }}
)

// Compress returns a middleware that compresses HTTP responses, preferring
// brotli and falling back to gzip based on the Accept-Encoding header.
// Clients that accept neither get the response untouched.
func Compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Protocol upgrades need the raw connection; a wrapped writer would
		// hide the http.Hijacker the WebSocket handshake requires.
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		accept := r.Header.Get("Accept-Encoding")
		// The response body depends on client capability
		w.Header().Add("Vary", "Accept-Encoding")

		switch {
		case strings.Contains(accept, "br"):
			bw := brPool.Get().(*brotli.Writer)
			defer brPool.Put(bw)
			bw.Reset(w)
			defer bw.Close()

			w.Header().Set("Content-Encoding", "br")
			w.Header().Del("Content-Length") // Length changes after compression
			next.ServeHTTP(&compressResponseWriter{Writer: bw, ResponseWriter: w}, r)

		case strings.Contains(accept, "gzip"):
			gz := gzPool.Get().(*gzip.Writer)
			defer gzPool.Put(gz)
			gz.Reset(w)
			defer gz.Close()

			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Del("Content-Length")
			next.ServeHTTP(&compressResponseWriter{Writer: gz, ResponseWriter: w}, r)

		default:
			next.ServeHTTP(w, r)
		}
	})
}
