package rates

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestClassifyError_RateLimited(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       io.NopCloser(strings.NewReader("")),
	}

	err := ClassifyError(resp)
	if err.Type != ErrorRateLimited {
		t.Errorf("Expected ErrorRateLimited, got %v", err.Type)
	}
	if !err.Retryable {
		t.Error("Expected rate limit error to be retryable")
	}
}

func TestClassifyError_UnknownBase(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadRequest,
		Body:       io.NopCloser(strings.NewReader(`{"result":"error","error-type":"unsupported-code"}`)),
	}

	err := ClassifyError(resp)
	if err.Type != ErrorUnknownBase {
		t.Errorf("Expected ErrorUnknownBase, got %v", err.Type)
	}
	if err.Retryable {
		t.Error("Expected unknown base error to not be retryable")
	}
}

func TestClassifyError_NotFoundIsUnknownBase(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("")),
	}

	err := ClassifyError(resp)
	if err.Type != ErrorUnknownBase {
		t.Errorf("Expected ErrorUnknownBase, got %v", err.Type)
	}
	if err.Retryable {
		t.Error("Expected 404 to not be retryable")
	}
}

func TestClassifyError_ServerError(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusInternalServerError,
		Body:       io.NopCloser(strings.NewReader("")),
	}

	err := ClassifyError(resp)
	if err.Type != ErrorServerError {
		t.Errorf("Expected ErrorServerError, got %v", err.Type)
	}
	if !err.Retryable {
		t.Error("Expected server error to be retryable")
	}
}

func TestClassifyError_Unauthorized(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusUnauthorized,
		Body:       io.NopCloser(strings.NewReader("")),
	}

	err := ClassifyError(resp)
	if err.Type != ErrorUnauthorized {
		t.Errorf("Expected ErrorUnauthorized, got %v", err.Type)
	}
	if err.Retryable {
		t.Error("Expected unauthorized error to not be retryable")
	}
}

func TestClassifyError_AppendsProviderReason(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusForbidden,
		Body:       io.NopCloser(strings.NewReader(`{"result":"error","error-type":"inactive-account"}`)),
	}

	err := ClassifyError(resp)
	if !strings.Contains(err.Message, "inactive-account") {
		t.Errorf("Expected provider reason in message, got %q", err.Message)
	}
}

func TestClassifyProviderError(t *testing.T) {
	tests := []struct {
		errorType string
		wantType  ErrorType
		retryable bool
	}{
		{"unsupported-code", ErrorUnknownBase, false},
		{"quota-reached", ErrorRateLimited, true},
		{"invalid-key", ErrorUnauthorized, false},
		{"inactive-account", ErrorUnauthorized, false},
		{"malformed-request", ErrorBadRequest, false},
		{"something-new", ErrorUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.errorType, func(t *testing.T) {
			err := classifyProviderError(tt.errorType)
			if err.Type != tt.wantType {
				t.Errorf("Expected type %v, got %v", tt.wantType, err.Type)
			}
			if err.Retryable != tt.retryable {
				t.Errorf("Expected retryable=%v, got %v", tt.retryable, err.Retryable)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name      string
		errType   ErrorType
		permanent bool
	}{
		{"Unknown base", ErrorUnknownBase, true},
		{"Bad request", ErrorBadRequest, true},
		{"Unauthorized", ErrorUnauthorized, true},
		{"Rate limited", ErrorRateLimited, false},
		{"Server error", ErrorServerError, false},
		{"Unknown", ErrorUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &APIError{Type: tt.errType}
			if IsPermanent(err) != tt.permanent {
				t.Errorf("Expected IsPermanent to be %v for %s", tt.permanent, tt.name)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil error must not be retryable")
	}
	if !IsRetryable(&APIError{Type: ErrorServerError, Retryable: true}) {
		t.Error("Expected retryable error to report true")
	}
}
