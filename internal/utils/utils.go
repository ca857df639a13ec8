package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseMonth parses a "YYYY-MM" month string into the first instant of that
// month in UTC.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", s, err)
	}
	return t.UTC(), nil
}

// FormatMonth renders a timestamp as its "YYYY-MM" month.
func FormatMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// MonthRange returns the half-open interval [start, end) covering the month
// containing t.
func MonthRange(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ParseCents converts a decimal amount string ("12.34", "-0.5", "7") into
// integer cents without going through floating point. At most two fractional
// digits are accepted.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" || s == "." {
		return 0, fmt.Errorf("invalid amount")
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	var cents int64
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("invalid amount %q", s)
			}
			cents = cents*10 + int64(c-'0')
		}
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

// FormatCents renders integer cents as a decimal amount string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// NormalizeCurrency uppercases a currency code, falling back to fallback when
// the input is not a three-letter code.
func NormalizeCurrency(code, fallback string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return fallback
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return fallback
		}
	}
	return code
}
