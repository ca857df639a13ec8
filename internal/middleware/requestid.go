package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/SvetozarP/finance-tracker-server/internal/logger"
)

// RequestIDHeader is the header name for request IDs
const RequestIDHeader = "X-Request-ID"

// RequestID middleware adds a unique request ID to each request.
// An incoming X-Request-ID is trusted and propagated so upstream proxies can
// correlate; otherwise a fresh UUID is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		// Echo the ID so clients can report it
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), logger.RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
