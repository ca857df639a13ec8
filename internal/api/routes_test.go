package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/api/handlers"
	"github.com/SvetozarP/finance-tracker-server/internal/cache"
	"github.com/SvetozarP/finance-tracker-server/internal/config"
)

// testConfig builds the router configuration by hand so tests never depend
// on whatever environment variables the host happens to export.
func testConfig() *config.Config {
	return &config.Config{
		CORSAllowedOrigins:  []string{"http://localhost:4200"},
		MaxRequestBodyBytes: 1 << 20,
	}
}

// newTestRouter wires a router with caches but no database or rate provider.
// Handlers that need the missing pieces panic and are recovered to 500,
// which is enough to prove a route is registered.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	vc := cache.NewVersioned(time.Minute, -1)
	t.Cleanup(vc.Close)
	return NewRouter(Deps{Versioned: vc, Responses: cache.NewMockCache()}, testConfig())
}

// TestAPIRoutesRegistered walks every REST route. A 404 means the route
// doesn't exist; any other status (even 500) means the route is registered
// and the request reached the handler. Handler behavior is tested in the
// handlers package.
func TestAPIRoutesRegistered(t *testing.T) {
	router := newTestRouter(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/transactions"},
		{http.MethodPost, "/api/transactions"},
		{http.MethodGet, "/api/transactions/1"},
		{http.MethodPut, "/api/transactions/1"},
		{http.MethodDelete, "/api/transactions/1"},
		{http.MethodGet, "/api/categories"},
		{http.MethodPost, "/api/categories"},
		{http.MethodGet, "/api/categories/1"},
		{http.MethodPut, "/api/categories/1"},
		{http.MethodDelete, "/api/categories/1"},
		{http.MethodGet, "/api/budgets"},
		{http.MethodPost, "/api/budgets"},
		{http.MethodGet, "/api/budgets/1"},
		{http.MethodPut, "/api/budgets/1"},
		{http.MethodDelete, "/api/budgets/1"},
		{http.MethodGet, "/api/budgets/1/progress"},
		{http.MethodGet, "/api/users"},
		{http.MethodPost, "/api/users"},
		{http.MethodGet, "/api/users/1"},
		{http.MethodPut, "/api/users/1"},
		{http.MethodGet, "/api/recurring"},
		{http.MethodPost, "/api/recurring"},
		{http.MethodPut, "/api/recurring/1/active"},
		{http.MethodGet, "/api/reports/summary"},
		{http.MethodGet, "/api/reports/by-category"},
		{http.MethodGet, "/api/rates"},
		{http.MethodGet, "/api/status"},
		{http.MethodGet, "/api/settings"},
		{http.MethodPut, "/api/settings/default_currency"},
		{http.MethodGet, "/api/admin/cache/stats"},
		{http.MethodGet, "/api/admin/cache/info"},
		{http.MethodDelete, "/api/admin/cache"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req := httptest.NewRequest(rt.method, rt.path, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code == http.StatusNotFound {
				t.Errorf("%s %s not registered", rt.method, rt.path)
			}
		})
	}
}

func TestProbeEndpoints(t *testing.T) {
	router := newTestRouter(t)

	t.Run("healthz", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
			t.Errorf("unexpected body %q", rr.Body.String())
		}
	})

	t.Run("readyz fails closed without a database", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rr.Code)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "# HELP") {
			t.Error("expected Prometheus exposition format")
		}
	})
}

func TestMethodRestrictions(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/rates", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST /api/rates, got %d", rr.Code)
	}
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	t.Run("generated request ID", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected a generated X-Request-ID")
		}
		if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
		}
		if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
			t.Errorf("X-Frame-Options = %q, want DENY", got)
		}
	})

	t.Run("incoming request ID propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-ID", "proxy-assigned-id")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if got := rr.Header().Get("X-Request-ID"); got != "proxy-assigned-id" {
			t.Errorf("X-Request-ID = %q, want the incoming value", got)
		}
	})
}

func TestCORSHeaders(t *testing.T) {
	router := newTestRouter(t)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "http://localhost:4200")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q", got)
		}
		if got := rr.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Cache") {
			t.Errorf("expected X-Cache in exposed headers, got %q", got)
		}
	})

	t.Run("unknown origin gets no grant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "http://evil.example")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
		req.Header.Set("Origin", "http://localhost:4200")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
		if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
			t.Errorf("Access-Control-Allow-Methods = %q", got)
		}
	})
}

func TestCompressedResponses(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	if got := rr.Header().Get("Vary"); got != "Accept-Encoding" {
		t.Errorf("Vary = %q, want Accept-Encoding", got)
	}

	zr, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer zr.Close()
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("unexpected decompressed body %q", body)
	}
}

// Profiling endpoints stay dark unless explicitly enabled.
func TestPprofGatedByConfig(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		router := newTestRouter(t)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.EnablePprof = true
		router := NewRouter(Deps{Responses: cache.NewMockCache()}, cfg)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))

		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rr.Code)
		}
	})
}

// The alert socket registers only when a hub is wired.
func TestAlertSocketRequiresHub(t *testing.T) {
	t.Run("without hub", func(t *testing.T) {
		router := newTestRouter(t)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws/alerts", nil))

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("with hub", func(t *testing.T) {
		router := NewRouter(Deps{
			Responses: cache.NewMockCache(),
			Hub:       handlers.NewHub(),
		}, testConfig())

		// A plain GET fails the handshake, but any non-404 proves the
		// route is registered.
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws/alerts", nil))

		if rr.Code == http.StatusNotFound {
			t.Error("alert socket not registered")
		}
	})
}
