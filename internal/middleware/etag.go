package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"
)

const (
	// etagCacheTTL defines how long clients may reuse a report response
	// before revalidating.
	etagCacheTTL = 60 * time.Second
	// etagStaleWhileRevalidate defines how long clients can serve stale
	// content while revalidating in the background.
	etagStaleWhileRevalidate = 300 * time.Second
)

// etagResponseWriter captures the response body to hash it.
type etagResponseWriter struct {
	http.ResponseWriter
	buf    *bytes.Buffer
	status int
}

func (w *etagResponseWriter) WriteHeader(status int) {
	w.status = status
}

func (w *etagResponseWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

// ETag adds conditional-request support to read endpoints. The report
// routes wear it: summaries for a closed month rarely change, so a 304
// saves recomputing and resending the payload. Only successful GET
// responses are tagged; errors and writes pass through untouched.
func ETag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		etw := &etagResponseWriter{
			ResponseWriter: w,
			buf:            &bytes.Buffer{},
			status:         http.StatusOK,
		}

		next.ServeHTTP(etw, r)

		if etw.status != http.StatusOK {
			w.WriteHeader(etw.status)
			w.Write(etw.buf.Bytes())
			return
		}

		hash := sha256.Sum256(etw.buf.Bytes())
		etag := fmt.Sprintf(`"%x"`, hash[:16]) // first 16 bytes keep the header short

		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
			int(etagCacheTTL.Seconds()), int(etagStaleWhileRevalidate.Seconds())))

		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.WriteHeader(etw.status)
		w.Write(etw.buf.Bytes())
	})
}
