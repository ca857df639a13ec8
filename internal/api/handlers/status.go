package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/cache"
)

// Status returns a runtime snapshot: uptime, database pool health and both
// cache layers' counters. The db, versioned and response handles may be nil
// in tests.
// GET /api/status
func Status(db *sql.DB, versioned *cache.VersionedCache, response cache.Cache, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := map[string]any{
			"status":        "ok",
			"uptimeSeconds": int64(time.Since(startedAt).Seconds()),
			"goroutines":    runtime.NumGoroutine(),
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			pingErr := db.PingContext(ctx)
			cancel()
			if pingErr != nil {
				out["status"] = "degraded"
			}

			s := db.Stats()
			out["db"] = map[string]any{
				"reachable":       pingErr == nil,
				"openConnections": s.OpenConnections,
				"inUse":           s.InUse,
				"idle":            s.Idle,
				"waitCount":       s.WaitCount,
			}
		}

		if versioned != nil {
			out["versionedCache"] = versioned.Stats()
		}
		if response != nil {
			rs := response.Stats()
			out["responseCache"] = map[string]any{
				"hits":      rs.Hits,
				"misses":    rs.Misses,
				"keysAdded": rs.KeysAdded,
				"evictions": rs.Evictions,
				"sizeBytes": rs.Size,
				"items":     rs.Items,
			}
		}

		writeJSON(w, http.StatusOK, out)
	}
}
