package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SvetozarP/finance-tracker-server/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// TXN_ - Transaction errors
	ErrTxnInvalidAmount ErrorCode = "TXN_INVALID_AMOUNT"
	ErrTxnInvalidType   ErrorCode = "TXN_INVALID_TYPE"

	// BUDGET_ - Budget errors
	ErrBudgetInvalidMonth ErrorCode = "BUDGET_INVALID_MONTH"
	ErrBudgetExists       ErrorCode = "BUDGET_EXISTS"

	// CATEGORY_ - Category errors
	ErrCategoryInUse ErrorCode = "CATEGORY_IN_USE"

	// RATES_ - FX rate provider errors
	ErrRatesUnavailable ErrorCode = "RATES_UNAVAILABLE"
	ErrRatesUnknownBase ErrorCode = "RATES_UNKNOWN_BASE"

	// SYSTEM_ - System and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemDatabase    ErrorCode = "SYSTEM_DATABASE"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"
	ErrSystemTimeout     ErrorCode = "SYSTEM_TIMEOUT"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON  ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue ErrorCode = "VALIDATION_INVALID_VALUE"

	// RESOURCE_ - Resource errors
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrResourceConflict ErrorCode = "RESOURCE_CONFLICT"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	status    int            // HTTP status code (not serialized)
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// Helper functions for common errors

// TxnInvalidAmount creates an invalid transaction amount error
func TxnInvalidAmount(message string) *Error {
	if message == "" {
		message = "Transaction amount must be a positive decimal with at most two places"
	}
	return New(ErrTxnInvalidAmount, message, http.StatusBadRequest)
}

// TxnInvalidType creates an invalid transaction type error
func TxnInvalidType(got string) *Error {
	return New(ErrTxnInvalidType, "Transaction type must be income or expense", http.StatusBadRequest).
		WithDetails(map[string]any{"type": got})
}

// BudgetInvalidMonth creates an invalid budget month error
func BudgetInvalidMonth(message string) *Error {
	if message == "" {
		message = "Budget month must be formatted YYYY-MM"
	}
	return New(ErrBudgetInvalidMonth, message, http.StatusBadRequest)
}

// BudgetExists creates a duplicate budget error
func BudgetExists(month string) *Error {
	return New(ErrBudgetExists, "A budget for this category and month already exists", http.StatusConflict).
		WithDetails(map[string]any{"month": month})
}

// CategoryInUse creates a category-in-use error
func CategoryInUse(message string) *Error {
	if message == "" {
		message = "Category still has transactions and cannot be deleted"
	}
	return New(ErrCategoryInUse, message, http.StatusConflict)
}

// RatesUnavailable creates an FX provider unavailable error
func RatesUnavailable(message string) *Error {
	if message == "" {
		message = "Exchange rate provider unavailable"
	}
	return New(ErrRatesUnavailable, message, http.StatusBadGateway)
}

// RatesUnknownBase creates an unknown base currency error
func RatesUnknownBase(base string) *Error {
	return New(ErrRatesUnknownBase, "Unknown base currency: "+base, http.StatusBadRequest).
		WithDetails(map[string]any{"base": base})
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(ErrSystemInternal, message, http.StatusInternalServerError)
}

// SystemDatabase creates a database error
func SystemDatabase(message string) *Error {
	if message == "" {
		message = "Database error"
	}
	return New(ErrSystemDatabase, message, http.StatusInternalServerError)
}

// SystemUnavailable creates a service unavailable error
func SystemUnavailable(message string) *Error {
	if message == "" {
		message = "Service unavailable"
	}
	return New(ErrSystemUnavailable, message, http.StatusServiceUnavailable)
}

// SystemTimeout creates a system timeout error
func SystemTimeout(message string) *Error {
	if message == "" {
		message = "Request timeout"
	}
	return New(ErrSystemTimeout, message, http.StatusRequestTimeout)
}

// ValidationInvalidJSON creates an invalid JSON error
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationMissingField creates a missing field error
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]any{"field": field})
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return New(ErrValidationInvalidValue, message, http.StatusBadRequest).
		WithDetails(map[string]any{"field": field})
}

// ResourceNotFound creates a resource not found error
func ResourceNotFound(resourceType string) *Error {
	return New(ErrResourceNotFound, resourceType+" not found", http.StatusNotFound).
		WithDetails(map[string]any{"resource_type": resourceType})
}

// ResourceConflict creates a resource conflict error
func ResourceConflict(message string) *Error {
	if message == "" {
		message = "Resource conflict"
	}
	return New(ErrResourceConflict, message, http.StatusConflict)
}

// RateLimitGlobal creates a global rate limit error
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitIP creates an IP rate limit error
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
