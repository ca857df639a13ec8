package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/SvetozarP/finance-tracker-server/internal/apierr"
	"github.com/SvetozarP/finance-tracker-server/internal/circuitbreaker"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/rates"
)

// RateSource provides exchange rate snapshots. *rates.Client implements it.
type RateSource interface {
	Latest(ctx context.Context, base string) (*rates.Snapshot, error)
}

// RatesHandler proxies FX rate lookups.
type RatesHandler struct {
	source RateSource
}

// NewRatesHandler creates a rates handler.
func NewRatesHandler(src RateSource) *RatesHandler {
	return &RatesHandler{source: src}
}

// GetLatestRates returns the current FX table for a base currency. An empty
// base defaults to USD.
// GET /api/rates?base=EUR
func (h *RatesHandler) GetLatestRates(w http.ResponseWriter, r *http.Request) {
	base := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("base")))
	if base != "" {
		if err := sanitizer.ValidateCurrencyCode(base); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("base", err.Error()))
			return
		}
	}

	snap, err := h.source.Latest(r.Context(), base)
	if err != nil {
		writeRatesError(w, r, base, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// writeRatesError maps provider failures onto the API error envelope.
func writeRatesError(w http.ResponseWriter, r *http.Request, base string, err error) {
	var apiErr *rates.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Type == rates.ErrorUnknownBase:
		apierr.WriteErrorWithContext(w, r, apierr.RatesUnknownBase(base))
	case errors.As(err, &apiErr) && apiErr.Type == rates.ErrorRateLimited:
		apierr.WriteErrorWithContext(w, r, apierr.RatesUnavailable("Exchange rate provider is rate limiting requests"))
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		apierr.WriteErrorWithContext(w, r, apierr.RatesUnavailable("Exchange rate provider is temporarily unavailable"))
	case errors.Is(err, context.DeadlineExceeded):
		apierr.WriteErrorWithContext(w, r, apierr.SystemTimeout("Exchange rate lookup timed out"))
	default:
		logger.ErrorContext(r.Context(), "Rates lookup failed", "error", err, "base", base)
		apierr.WriteErrorWithContext(w, r, apierr.RatesUnavailable("Failed to fetch exchange rates"))
	}
}
