package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/apierr"
	"github.com/SvetozarP/finance-tracker-server/internal/cache"
	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/metrics"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
	"github.com/SvetozarP/finance-tracker-server/internal/utils"
)

func reportSummaryKey(month string) string    { return "reports:summary:" + month }
func reportByCategoryKey(month string) string { return "reports:by-category:" + month }

// ReportStore defines the aggregation queries the report endpoints need.
type ReportStore interface {
	MonthlySummaryFor(ctx context.Context, month string, from, to time.Time) (store.MonthlySummary, error)
	CategoryBreakdown(ctx context.Context, from, to time.Time) ([]store.CategorySpend, error)
}

// ReportHandler serves the monthly report endpoints. Rendered JSON is
// memoized in the response cache and re-rendered when transaction writes
// invalidate the month.
type ReportHandler struct {
	store ReportStore
	cache cache.Cache
}

// NewReportHandler creates a report handler.
func NewReportHandler(s ReportStore, c cache.Cache) *ReportHandler {
	return &ReportHandler{store: s, cache: c}
}

// ByCategoryReport is the by-category spending breakdown for one month.
type ByCategoryReport struct {
	Month      string                `json:"month"`
	Categories []store.CategorySpend `json:"categories"`
}

// reportMonth resolves the month query parameter, defaulting to the current
// month.
func reportMonth(r *http.Request) (time.Time, *apierr.Error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	m, err := utils.ParseMonth(raw)
	if err != nil {
		return time.Time{}, apierr.ValidationInvalidValue("month", "want YYYY-MM")
	}
	return m, nil
}

// GetMonthlySummary returns income, expense and net totals for one month.
// GET /api/reports/summary?month=2026-03
func (h *ReportHandler) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	m, aerr := reportMonth(r)
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	month := utils.FormatMonth(m)

	key := reportSummaryKey(month)
	if data, found := h.cache.Get(key); found {
		metrics.ResponseCacheHits.WithLabelValues("summary").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		_, _ = w.Write(data)
		return
	}
	metrics.ResponseCacheMisses.WithLabelValues("summary").Inc()

	from, to := utils.MonthRange(m)
	sum, err := h.store.MonthlySummaryFor(r.Context(), month, from, to)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to build monthly summary", "error", err, "month", month)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to build monthly summary"))
		return
	}

	data, err := json.Marshal(sum)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to marshal monthly summary", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("Failed to serialize report"))
		return
	}
	h.cache.Set(key, data, config.Load().ResponseCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	_, _ = w.Write(data)
}

// GetByCategoryReport returns per-category expense totals for one month.
// GET /api/reports/by-category?month=2026-03
func (h *ReportHandler) GetByCategoryReport(w http.ResponseWriter, r *http.Request) {
	m, aerr := reportMonth(r)
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}
	month := utils.FormatMonth(m)

	key := reportByCategoryKey(month)
	if data, found := h.cache.Get(key); found {
		metrics.ResponseCacheHits.WithLabelValues("by_category").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		_, _ = w.Write(data)
		return
	}
	metrics.ResponseCacheMisses.WithLabelValues("by_category").Inc()

	from, to := utils.MonthRange(m)
	rows, err := h.store.CategoryBreakdown(r.Context(), from, to)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to build category breakdown", "error", err, "month", month)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to build category breakdown"))
		return
	}
	if rows == nil {
		rows = []store.CategorySpend{}
	}

	data, err := json.Marshal(ByCategoryReport{Month: month, Categories: rows})
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to marshal category breakdown", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("Failed to serialize report"))
		return
	}
	h.cache.Set(key, data, config.Load().ResponseCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	_, _ = w.Write(data)
}
