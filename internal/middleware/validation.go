package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// BodyLimit returns a middleware that caps request body size for methods
// that carry one. The limit comes from configuration; a transaction or
// budget payload has no business being megabytes long.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SanitizeInput provides input sanitization utilities.
type SanitizeInput struct{}

// SanitizeString trims, bounds and UTF-8-cleans free-text input such as
// transaction descriptions before it reaches the database.
func (s *SanitizeInput) SanitizeString(input string, maxLength int) string {
	input = strings.TrimSpace(input)

	if len(input) > maxLength {
		input = input[:maxLength]
	}

	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}

	return input
}

// ValidateCurrencyCode checks an ISO 4217-shaped currency code: exactly
// three ASCII letters, case-insensitive.
func (s *SanitizeInput) ValidateCurrencyCode(code string) error {
	code = strings.TrimSpace(code)

	if code == "" {
		return fmt.Errorf("currency code cannot be empty")
	}

	if len(code) != 3 {
		return fmt.Errorf("currency code must be exactly 3 letters")
	}

	for _, c := range code {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			return fmt.Errorf("currency code contains invalid characters")
		}
	}

	return nil
}
