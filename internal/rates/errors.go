package rates

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// ErrorType represents different types of exchange rate provider errors
type ErrorType int

const (
	ErrorUnknown ErrorType = iota
	ErrorRateLimited
	ErrorUnknownBase
	ErrorUnauthorized
	ErrorBadRequest
	ErrorServerError
)

// APIError represents a provider error with additional context
type APIError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	return e.Message
}

// providerErrorResponse matches the JSON body the provider returns on failure,
// e.g. {"result":"error","error-type":"unsupported-code"}.
type providerErrorResponse struct {
	Result    string `json:"result"`
	ErrorType string `json:"error-type"`
}

// ClassifyError determines the type of error from an HTTP response
func ClassifyError(resp *http.Response) *APIError {
	if resp == nil {
		return &APIError{
			Type:      ErrorUnknown,
			Message:   "nil response",
			Retryable: false,
		}
	}

	// Read and parse response body for additional context
	var bodyText string
	var provErr providerErrorResponse
	if resp.Body != nil {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err == nil {
			bodyText = string(bodyBytes)
			_ = json.Unmarshal(bodyBytes, &provErr)
		}
		// Note: Body is already read, caller should not try to read it again
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Type:       ErrorUnknown,
		Retryable:  false,
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		apiErr.Type = ErrorRateLimited
		apiErr.Message = "rate limited by exchange rate provider"
		apiErr.Retryable = true

	case http.StatusNotFound:
		apiErr.Type = ErrorUnknownBase
		apiErr.Message = "unknown base currency (404)"
		apiErr.Retryable = false

	case http.StatusForbidden, http.StatusUnauthorized:
		apiErr.Type = ErrorUnauthorized
		apiErr.Message = "provider rejected credentials"
		apiErr.Retryable = false

	case http.StatusBadRequest:
		apiErr.Type = ErrorBadRequest
		apiErr.Message = "bad request (400)"
		apiErr.Retryable = false

		if strings.Contains(bodyText, "unsupported-code") || provErr.ErrorType == "unsupported-code" {
			apiErr.Type = ErrorUnknownBase
			apiErr.Message = "unsupported base currency"
		}

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		apiErr.Type = ErrorServerError
		apiErr.Message = "provider server error (5xx)"
		apiErr.Retryable = true

	default:
		if resp.StatusCode >= 500 {
			apiErr.Type = ErrorServerError
			apiErr.Message = "server error"
			apiErr.Retryable = true
		} else if resp.StatusCode >= 400 {
			apiErr.Type = ErrorBadRequest
			apiErr.Message = "client error"
			apiErr.Retryable = false
		}
	}

	// Fold in the provider's machine-readable reason if present
	if provErr.ErrorType != "" {
		apiErr.Message += ": " + provErr.ErrorType
	}

	return apiErr
}

// classifyProviderError maps a provider error-type string from a 200-level
// body ({"result":"error",...}) to an APIError.
func classifyProviderError(errorType string) *APIError {
	switch errorType {
	case "unsupported-code":
		return &APIError{Type: ErrorUnknownBase, Message: "unsupported base currency", Retryable: false}
	case "quota-reached":
		return &APIError{Type: ErrorRateLimited, Message: "provider quota reached", Retryable: true}
	case "invalid-key", "inactive-account":
		return &APIError{Type: ErrorUnauthorized, Message: "provider rejected credentials: " + errorType, Retryable: false}
	case "malformed-request":
		return &APIError{Type: ErrorBadRequest, Message: "malformed request", Retryable: false}
	default:
		return &APIError{Type: ErrorUnknown, Message: "provider error: " + errorType, Retryable: false}
	}
}

// IsRetryable checks if an error should be retried
func IsRetryable(err *APIError) bool {
	return err != nil && err.Retryable
}

// IsPermanent checks if an error is permanent (should not be retried)
func IsPermanent(err *APIError) bool {
	if err == nil {
		return false
	}
	return err.Type == ErrorUnknownBase ||
		err.Type == ErrorBadRequest ||
		err.Type == ErrorUnauthorized
}
