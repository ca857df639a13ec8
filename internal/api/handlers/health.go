package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/logger"
)

// Health reports that the process is alive. It deliberately touches nothing
// else, so load balancers keep routing while dependencies recover.
// GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Pinger is the readiness dependency. *store.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ready reports whether the service can reach its database. A nil Pinger
// reads as not ready.
// GET /readyz
func Ready(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.WarnContext(r.Context(), "Readiness probe failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
