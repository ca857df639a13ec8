package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestCompress(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"test response that should be compressed"}`))
	})

	tests := []struct {
		name           string
		acceptEncoding string
		expectEncoding string
	}{
		{
			name:           "brotli support",
			acceptEncoding: "br",
			expectEncoding: "br",
		},
		{
			name:           "brotli preferred over gzip",
			acceptEncoding: "gzip, deflate, br",
			expectEncoding: "br",
		},
		{
			name:           "gzip fallback",
			acceptEncoding: "gzip, deflate",
			expectEncoding: "gzip",
		},
		{
			name:           "no compression support",
			acceptEncoding: "",
			expectEncoding: "",
		},
		{
			name:           "only deflate support",
			acceptEncoding: "deflate",
			expectEncoding: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Compress(testHandler)
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rr.Code)
			}
			if got := rr.Header().Get("Content-Encoding"); got != tt.expectEncoding {
				t.Fatalf("expected Content-Encoding %q, got %q", tt.expectEncoding, got)
			}
			if vary := rr.Header().Get("Vary"); !strings.Contains(vary, "Accept-Encoding") {
				t.Errorf("expected Vary: Accept-Encoding, got %q", vary)
			}

			var body []byte
			var err error
			switch tt.expectEncoding {
			case "br":
				body, err = io.ReadAll(brotli.NewReader(rr.Body))
			case "gzip":
				gr, gzErr := gzip.NewReader(rr.Body)
				if gzErr != nil {
					t.Fatalf("failed to create gzip reader: %v", gzErr)
				}
				defer gr.Close()
				body, err = io.ReadAll(gr)
			default:
				body = rr.Body.Bytes()
			}
			if err != nil {
				t.Fatalf("failed to read body: %v", err)
			}
			if !strings.Contains(string(body), "test response") {
				t.Error("body doesn't contain expected content")
			}
		})
	}
}
