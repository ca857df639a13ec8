package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/SvetozarP/finance-tracker-server/internal/cache"
	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/metrics"
	"github.com/SvetozarP/finance-tracker-server/internal/perf"
)

// QueryAnalyzer is the slice of the perf package the middleware needs;
// tests inject fakes.
type QueryAnalyzer interface {
	Analyze(ctx context.Context, table string) (*perf.Report, error)
}

// Performance times every request and, for slow ones, asks the analyzer
// whether the backing table is being scanned badly. Analyses are memoized
// in the versioned cache keyed by request shape, so a hammered slow route
// costs one introspection query per TTL window rather than one per hit.
type Performance struct {
	cache           *cache.VersionedCache
	analyzer        QueryAnalyzer
	threshold       time.Duration
	analysisTTL     time.Duration
	analysisTimeout time.Duration
	log             *slog.Logger
}

// NewPerformance wires the middleware from configuration.
func NewPerformance(vc *cache.VersionedCache, analyzer QueryAnalyzer, cfg *config.Config) *Performance {
	return &Performance{
		cache:           vc,
		analyzer:        analyzer,
		threshold:       cfg.SlowRequestThreshold,
		analysisTTL:     cfg.AnalysisTTL,
		analysisTimeout: cfg.AnalysisTimeout,
		log:             logger.WithComponent("performance"),
	}
}

// statusRecorder captures the status code for metric labels.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware observes request duration and triggers analysis of slow
// requests. The analysis runs after the response, in its own goroutine,
// and never touches the client-visible path.
func (p *Performance) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket upgrades hijack the connection and never return a
		// conventional status; wrapping the writer would break the handshake.
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		route := routeTemplate(r)
		status := strconv.Itoa(rec.status)

		metrics.APIRequestDuration.WithLabelValues(route, r.Method, status).Observe(duration.Seconds())
		metrics.APIRequestsTotal.WithLabelValues(route, r.Method, status).Inc()

		if p.threshold <= 0 || duration < p.threshold {
			return
		}

		metrics.SlowRequestsTotal.WithLabelValues(route, r.Method).Inc()
		p.log.Warn("Slow request",
			"method", r.Method,
			"route", route,
			"duration_ms", duration.Milliseconds(),
			"status", rec.status)

		if p.analyzer == nil || p.cache == nil {
			return
		}

		// The request context dies when the handler returns, so the
		// analysis gets a detached context carrying only the request ID.
		ctx := context.Background()
		if reqID, ok := r.Context().Value(logger.RequestIDKey).(string); ok {
			ctx = context.WithValue(ctx, logger.RequestIDKey, reqID)
		}
		go p.analyzeRoute(ctx, r.Method, route)
	})
}

// analyzeRoute memoizes one analysis per method+route within the TTL.
func (p *Performance) analyzeRoute(ctx context.Context, method, route string) {
	ctx, cancel := context.WithTimeout(ctx, p.analysisTimeout)
	defer cancel()

	table := perf.TableForRoute(route)
	key := fmt.Sprintf("perf:%s:%s", method, route)

	value, err := p.cache.GetOrSet(ctx, key, p.analysisTTL, cache.DefaultVersion,
		func(ctx context.Context) (any, error) {
			return p.analyzer.Analyze(ctx, table)
		})
	if err != nil {
		// Breaker open or introspection failure; diagnostics stay best-effort.
		p.log.Debug("Query analysis unavailable", "route", route, "error", err)
		return
	}

	report, ok := value.(*perf.Report)
	if !ok || report == nil {
		return
	}

	if report.LowEfficiency() {
		metrics.LowEfficiencyWarnings.WithLabelValues(report.Table).Inc()
		p.log.Warn("Low query efficiency on slow route",
			"method", method,
			"route", route,
			"table", report.Table,
			"efficiency", report.Efficiency,
			"suggestion", report.Suggestion)
	}
}

// routeTemplate returns the gorilla route template ("/api/budgets/{id}")
// so metrics aggregate by shape instead of exploding per ID.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}
