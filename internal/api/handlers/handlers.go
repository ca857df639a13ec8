// Package handlers implements the HTTP endpoints of the finance tracker API.
// Handlers depend on narrow store interfaces so tests can inject fakes.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/SvetozarP/finance-tracker-server/internal/apierr"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/middleware"
)

// sanitizer strips control characters and trims overlong free-text input.
var sanitizer = &middleware.SanitizeInput{}

// writeJSON serializes v with the given status. Encoding failures are only
// logged; by then the status line is already on the wire.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// decodeJSON parses the request body into dst, answering the validation
// error itself when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return false
	}
	return true
}

// pathID extracts the {id} route variable as a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
