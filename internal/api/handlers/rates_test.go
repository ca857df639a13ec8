package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/circuitbreaker"
	"github.com/SvetozarP/finance-tracker-server/internal/rates"
)

type fakeRateSource struct {
	snap *rates.Snapshot
	err  error
}

func (f *fakeRateSource) Latest(ctx context.Context, base string) (*rates.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func getRates(t *testing.T, h *RatesHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	h.GetLatestRates(rr, req)
	return rr
}

func TestGetLatestRates(t *testing.T) {
	src := &fakeRateSource{snap: &rates.Snapshot{
		Base:      "EUR",
		Rates:     map[string]float64{"USD": 1.09, "GBP": 0.85},
		FetchedAt: time.Now(),
	}}
	h := NewRatesHandler(src)

	rr := getRates(t, h, "/api/rates?base=eur")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var out rates.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Base != "EUR" || out.Rates["USD"] != 1.09 {
		t.Fatalf("unexpected snapshot: %+v", out)
	}
}

func TestGetLatestRates_InvalidBase(t *testing.T) {
	h := NewRatesHandler(&fakeRateSource{})

	rr := getRates(t, h, "/api/rates?base=EU1")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body: %s", rr.Code, rr.Body.String())
	}
	if got := errCode(t, rr.Body.Bytes()); got != "VALIDATION_INVALID_VALUE" {
		t.Errorf("expected VALIDATION_INVALID_VALUE, got %s", got)
	}
}

func TestGetLatestRates_ProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			"unknown base",
			&rates.APIError{Type: rates.ErrorUnknownBase, Message: "unsupported base currency"},
			http.StatusBadRequest,
			"RATES_UNKNOWN_BASE",
		},
		{
			"provider rate limited",
			&rates.APIError{Type: rates.ErrorRateLimited, Message: "provider quota reached"},
			http.StatusBadGateway,
			"RATES_UNAVAILABLE",
		},
		{
			"circuit open",
			circuitbreaker.ErrCircuitOpen,
			http.StatusBadGateway,
			"RATES_UNAVAILABLE",
		},
		{
			"timeout",
			context.DeadlineExceeded,
			http.StatusRequestTimeout,
			"SYSTEM_TIMEOUT",
		},
		{
			"anything else",
			context.Canceled,
			http.StatusBadGateway,
			"RATES_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRatesHandler(&fakeRateSource{err: tt.err})

			rr := getRates(t, h, "/api/rates?base=XXX")
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d, body: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if got := errCode(t, rr.Body.Bytes()); got != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, got)
			}
		})
	}
}
