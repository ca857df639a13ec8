package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/transactions", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	}

	for _, tt := range tests {
		if got := rr.Header().Get(tt.header); got != tt.expected {
			t.Errorf("Expected %s: %s, got %s", tt.header, tt.expected, got)
		}
	}

	// The API serves JSON only, so the CSP denies everything
	csp := rr.Header().Get("Content-Security-Policy")
	if csp == "" {
		t.Error("Expected Content-Security-Policy header to be set")
	}
	if !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("Expected CSP to contain \"default-src 'none'\", got %s", csp)
	}
}

func TestSecurityHeaders_NoHSTSWithoutTLS(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/transactions", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	// HSTS should not be set without TLS
	if hsts := rr.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("Expected no HSTS header without TLS, got %s", hsts)
	}
}
