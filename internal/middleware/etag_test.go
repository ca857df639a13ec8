package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestETag(t *testing.T) {
	reportHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"month":"2026-03","income_cents":520000,"expense_cents":310000}`))
	})

	tests := []struct {
		name         string
		ifNoneMatch  string
		expectStatus int
		expectETag   bool
		expectBody   bool
	}{
		{
			name:         "first request without If-None-Match",
			ifNoneMatch:  "",
			expectStatus: http.StatusOK,
			expectETag:   true,
			expectBody:   true,
		},
		{
			name:         "request with non-matching If-None-Match",
			ifNoneMatch:  `"different-etag"`,
			expectStatus: http.StatusOK,
			expectETag:   true,
			expectBody:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := ETag(reportHandler)
			req := httptest.NewRequest(http.MethodGet, "/api/reports/summary", nil)
			if tt.ifNoneMatch != "" {
				req.Header.Set("If-None-Match", tt.ifNoneMatch)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectStatus {
				t.Errorf("expected status %d, got %d", tt.expectStatus, rr.Code)
			}

			etag := rr.Header().Get("ETag")
			if tt.expectETag && etag == "" {
				t.Error("expected ETag header to be set")
			}

			if tt.expectBody && rr.Body.Len() == 0 {
				t.Error("expected response body, got empty")
			}

			cacheControl := rr.Header().Get("Cache-Control")
			if tt.expectStatus == http.StatusOK {
				expected := "public, max-age=60, stale-while-revalidate=300"
				if cacheControl != expected {
					t.Errorf("expected Cache-Control %q, got %q", expected, cacheControl)
				}
			}
		})
	}

	t.Run("matching ETag returns 304", func(t *testing.T) {
		handler := ETag(reportHandler)

		// First request to learn the ETag
		req1 := httptest.NewRequest(http.MethodGet, "/api/reports/summary", nil)
		rr1 := httptest.NewRecorder()
		handler.ServeHTTP(rr1, req1)

		if rr1.Code != http.StatusOK {
			t.Fatalf("first request failed with status %d", rr1.Code)
		}

		etag := rr1.Header().Get("ETag")
		if etag == "" {
			t.Fatal("first request did not return ETag")
		}

		// Revalidation with the ETag we were given
		req2 := httptest.NewRequest(http.MethodGet, "/api/reports/summary", nil)
		req2.Header.Set("If-None-Match", etag)
		rr2 := httptest.NewRecorder()
		handler.ServeHTTP(rr2, req2)

		if rr2.Code != http.StatusNotModified {
			t.Errorf("expected status 304, got %d", rr2.Code)
		}

		if rr2.Body.Len() > 0 {
			t.Error("expected empty body for 304 response")
		}
	})
}

func TestETagSkipsNonGET(t *testing.T) {
	handler := ETag(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
	if rr.Header().Get("ETag") != "" {
		t.Error("POST responses must not carry an ETag")
	}
}

func TestETagSkipsErrors(t *testing.T) {
	handler := ETag(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"RESOURCE_001"}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/summary", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
	if rr.Header().Get("ETag") != "" {
		t.Error("error responses must not carry an ETag")
	}
	if rr.Body.Len() == 0 {
		t.Error("error body must pass through")
	}
}

func TestETagStableAcrossIdenticalBodies(t *testing.T) {
	handler := ETag(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"month":"2026-03"}`))
	}))

	etags := make([]string, 2)
	for i := range etags {
		req := httptest.NewRequest(http.MethodGet, "/api/reports/summary", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		etags[i] = rr.Header().Get("ETag")
	}

	if etags[0] == "" || etags[0] != etags[1] {
		t.Errorf("expected identical bodies to share an ETag, got %q and %q", etags[0], etags[1])
	}
}
