package errorreporting

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

// Patterns scrubbed from outgoing events. A finance backend's error strings
// can embed card numbers, account references, emails, and credentials; all
// of them must be gone before an event leaves the process.
var piiPatterns = []*regexp.Regexp{
	// Email addresses
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	// Bearer tokens (typically 20+ chars)
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_-]{20,}`),
	// API keys and secrets
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret)["\s:=]+[a-zA-Z0-9_-]{16,}`),
	// IP addresses
	regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	// Card numbers, grouped or unbroken
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
	// IBAN-style account references
	regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`),
}

// Init wires up Sentry when SENTRY_DSN is set; without it the package is a
// no-op and every Capture call silently discards. Production samples traces
// at 10% to keep quota spent on errors rather than timing spans.
func Init(environment string) error {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return nil
	}

	sampleRate := 1.0
	if os.Getenv("ENV") == "production" {
		sampleRate = 0.1
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          getRelease(),
		TracesSampleRate: sampleRate,
		BeforeSend:       beforeSend,
		AttachStacktrace: true,
	}); err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	return nil
}

func getRelease() string {
	if release := os.Getenv("SENTRY_RELEASE"); release != "" {
		return release
	}
	if version := os.Getenv("SERVICE_VERSION"); version != "" {
		return version
	}
	return "dev"
}

// beforeSend scrubs every event on its way out: exception values, the
// message, string extras, auth-bearing headers, and the query string
// (report URLs carry month and category parameters that identify spending).
func beforeSend(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	for i := range event.Exception {
		event.Exception[i].Value = scrubPII(event.Exception[i].Value)
	}

	if event.Message != "" {
		event.Message = scrubPII(event.Message)
	}

	for key, value := range event.Extra {
		if str, ok := value.(string); ok {
			event.Extra[key] = scrubPII(str)
		}
	}

	if event.Request != nil {
		if event.Request.Headers != nil {
			delete(event.Request.Headers, "Authorization")
			delete(event.Request.Headers, "Cookie")
			delete(event.Request.Headers, "X-Api-Key")
		}
		event.Request.QueryString = ""
	}

	return event
}

func scrubPII(text string) string {
	result := text
	for _, pattern := range piiPatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// CaptureError reports err to Sentry. Nil errors are ignored so callers can
// pass results through unconditionally.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureErrorWithContext reports err with scoped tags and extras. Extras
// pass through beforeSend, so string values are scrubbed like everything
// else.
func CaptureErrorWithContext(err error, tags map[string]string, extras map[string]interface{}) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush blocks until buffered events are delivered or timeout elapses,
// reporting whether the queue drained. Called on shutdown.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// ScrubPII applies the redaction patterns to text. The recovery middleware
// runs panic stack traces through it before attaching them to an event.
func ScrubPII(text string) string {
	return scrubPII(text)
}

// IsSentryEnabled reports whether a DSN is configured.
func IsSentryEnabled() bool {
	return os.Getenv("SENTRY_DSN") != ""
}

// ValidateDSN rejects DSNs that are not http(s) URLs before they reach
// sentry.Init, which would otherwise fail with a less useful message.
func ValidateDSN(dsn string) error {
	if !strings.HasPrefix(dsn, "https://") && !strings.HasPrefix(dsn, "http://") {
		return fmt.Errorf("invalid Sentry DSN format")
	}
	return nil
}
