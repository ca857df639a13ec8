package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/SvetozarP/finance-tracker-server/internal/cache"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
)

// CacheAdminHandler exposes the versioned cache's statistics and clearing
// operations.
type CacheAdminHandler struct {
	cache *cache.VersionedCache
}

// NewCacheAdminHandler creates a cache admin handler.
func NewCacheAdminHandler(c *cache.VersionedCache) *CacheAdminHandler {
	return &CacheAdminHandler{cache: c}
}

// adminResponse is the envelope every cache admin endpoint answers with.
// DeletedCount is a pointer so that matching zero entries still serializes
// as "deletedCount": 0.
type adminResponse struct {
	Success      bool   `json:"success"`
	Data         any    `json:"data,omitempty"`
	Message      string `json:"message"`
	DeletedCount *int   `json:"deletedCount,omitempty"`
}

// GetStats returns hit/miss counters, hit rate and size figures.
// GET /api/admin/cache/stats
func (h *CacheAdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, adminResponse{
		Success: true,
		Data:    h.cache.Stats(),
		Message: "Cache statistics retrieved",
	})
}

// GetInfo returns the counters plus a preview of the oldest entries.
// GET /api/admin/cache/info
func (h *CacheAdminHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, adminResponse{
		Success: true,
		Data:    h.cache.Info(),
		Message: "Cache info retrieved",
	})
}

// Invalidate clears the whole cache, or only the composite keys matching the
// pattern query parameter. Patterns use * as a wildcard and match against
// "version:key" composite keys, so "1:user:*" and "user:*" both work.
// DELETE /api/admin/cache[?pattern=user:*]
func (h *CacheAdminHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	pattern := strings.TrimSpace(r.URL.Query().Get("pattern"))
	if pattern == "" {
		h.cache.Clear()
		logger.InfoContext(r.Context(), "Cache cleared via admin endpoint")
		writeJSON(w, http.StatusOK, adminResponse{Success: true, Message: "Cache cleared"})
		return
	}

	n := h.cache.DeleteMatching(pattern)
	logger.InfoContext(r.Context(), "Cache entries deleted via admin endpoint",
		"pattern", pattern, "deleted", n)
	writeJSON(w, http.StatusOK, adminResponse{
		Success:      true,
		Message:      fmt.Sprintf("Deleted %d cache entries matching pattern", n),
		DeletedCount: &n,
	})
}
