package utils

import (
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	got, err := ParseMonth("2026-08")
	if err != nil {
		t.Fatalf("ParseMonth returned error: %v", err)
	}
	want := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseMonth = %v, want %v", got, want)
	}

	for _, bad := range []string{"", "2026", "2026-13", "08-2026", "2026/08"} {
		if _, err := ParseMonth(bad); err == nil {
			t.Errorf("ParseMonth(%q) should fail", bad)
		}
	}
}

func TestMonthRange(t *testing.T) {
	mid := time.Date(2026, time.February, 14, 9, 30, 0, 0, time.UTC)
	start, end := MonthRange(mid)

	if want := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}

	// December rolls into the next year.
	_, end = MonthRange(time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC))
	if want := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("December end = %v, want %v", end, want)
	}
}

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"0.99", 99, false},
		{"7", 700, false},
		{"7.5", 750, false},
		{"-0.50", -50, false},
		{"+3.00", 300, false},
		{" 19.99 ", 1999, false},
		{"0", 0, false},
		{"", 0, true},
		{".", 0, true},
		{"-", 0, true},
		{"12.345", 0, true},
		{"12,34", 0, true},
		{"abc", 0, true},
		{"1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCents(%q) should fail, got %d", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCents(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseCents(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{1234, "12.34"},
		{99, "0.99"},
		{700, "7.00"},
		{-50, "-0.50"},
		{0, "0.00"},
		{5, "0.05"},
	}
	for _, tt := range tests {
		if got := FormatCents(tt.in); got != tt.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCentsFormatCentsRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 12345, -12345} {
		parsed, err := ParseCents(FormatCents(cents))
		if err != nil {
			t.Fatalf("round trip of %d failed: %v", cents, err)
		}
		if parsed != cents {
			t.Errorf("round trip of %d produced %d", cents, parsed)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"usd", "USD"},
		{" eur ", "EUR"},
		{"GBP", "GBP"},
		{"", "USD"},
		{"us", "USD"},
		{"dollars", "USD"},
		{"u$d", "USD"},
	}
	for _, tt := range tests {
		if got := NormalizeCurrency(tt.in, "USD"); got != tt.want {
			t.Errorf("NormalizeCurrency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
