package handlers

import (
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/SvetozarP/finance-tracker-server/internal/logger"
)

// Pprof serves the runtime profiling pages, logging every access so the
// audit trail shows who pulled profiles.
func Pprof() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/debug/pprof") {
			http.NotFound(w, r)
			return
		}
		logger.InfoContext(r.Context(), "Profiling endpoint accessed",
			"endpoint", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"type", "security_audit")
		mux.ServeHTTP(w, r)
	})
}
