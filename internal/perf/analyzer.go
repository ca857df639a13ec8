package perf

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/circuitbreaker"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/metrics"
)

// LowEfficiencyThreshold is the index-usage percentage below which a
// report is treated as a problem worth warning about.
const LowEfficiencyThreshold = 50.0

// Report summarizes how a table is being scanned. It is stored in the
// versioned cache, so every field must survive a JSON round trip.
type Report struct {
	Table      string    `json:"table"`
	SeqScans   int64     `json:"seq_scans"`
	IdxScans   int64     `json:"idx_scans"`
	LiveRows   int64     `json:"live_rows"`
	Efficiency float64   `json:"efficiency"` // percent of scans served by an index
	Suggestion string    `json:"suggestion"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// LowEfficiency reports whether this table leans on sequential scans.
func (r *Report) LowEfficiency() bool {
	return r.Efficiency < LowEfficiencyThreshold
}

// Analyzer reads pg_stat_user_tables to judge whether slow endpoints are
// slow because their backing table keeps getting scanned sequentially.
// Calls run through a circuit breaker: a database struggling enough to
// make requests slow should not also be carrying diagnostic load.
type Analyzer struct {
	db  *sql.DB
	cb  *circuitbreaker.CircuitBreaker
	log *slog.Logger
}

// NewAnalyzer creates an analyzer over the given database handle.
func NewAnalyzer(db *sql.DB) *Analyzer {
	return &Analyzer{
		db: db,
		cb: circuitbreaker.New(circuitbreaker.Config{
			Name:             "query-analyzer",
			FailureThreshold: 3,
			SuccessThreshold: 1,
			Timeout:          2 * time.Minute,
		}),
		log: logger.WithComponent("perf"),
	}
}

// Analyze produces a scan report for one table. ErrCircuitOpen means the
// breaker is refusing probes; callers should treat that as "no data", not
// as a failure to escalate.
func (a *Analyzer) Analyze(ctx context.Context, table string) (*Report, error) {
	start := time.Now()

	var report *Report
	err := a.cb.Call(func() error {
		var callErr error
		report, callErr = a.readScanStats(ctx, table)
		return callErr
	})
	metrics.QueryAnalysisDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		metrics.QueryAnalysisTotal.WithLabelValues("skipped").Inc()
		a.log.Debug("Query analysis skipped, breaker open", "table", table)
		return nil, err
	case err != nil:
		metrics.QueryAnalysisTotal.WithLabelValues("failed").Inc()
		a.log.Warn("Query analysis failed", "table", table, "error", err)
		return nil, err
	}

	metrics.QueryAnalysisTotal.WithLabelValues("success").Inc()
	return report, nil
}

func (a *Analyzer) readScanStats(ctx context.Context, table string) (*Report, error) {
	const query = `
		SELECT COALESCE(seq_scan, 0), COALESCE(idx_scan, 0), COALESCE(n_live_tup, 0)
		FROM pg_stat_user_tables
		WHERE schemaname = 'public' AND relname = $1`

	var seq, idx, live int64
	err := a.db.QueryRowContext(ctx, query, table).Scan(&seq, &idx, &live)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no statistics for table %q", table)
	}
	if err != nil {
		return nil, fmt.Errorf("read scan stats for %q: %w", table, err)
	}

	return buildReport(table, seq, idx, live), nil
}

func buildReport(table string, seq, idx, live int64) *Report {
	r := &Report{
		Table:      table,
		SeqScans:   seq,
		IdxScans:   idx,
		LiveRows:   live,
		AnalyzedAt: time.Now(),
	}

	total := seq + idx
	if total == 0 {
		// Never scanned: nothing to optimize yet.
		r.Efficiency = 100
		r.Suggestion = "no scans recorded yet"
		return r
	}

	r.Efficiency = math.Round(float64(idx)/float64(total)*1000) / 10

	switch {
	case r.LowEfficiency() && live > 1000:
		r.Suggestion = fmt.Sprintf(
			"%d sequential vs %d index scans over %d rows; an index on the filtered columns would help",
			seq, idx, live)
	case r.LowEfficiency():
		r.Suggestion = "sequential scans dominate, but the table is small enough not to matter yet"
	default:
		r.Suggestion = "scan pattern healthy"
	}
	return r
}

// TableForRoute maps a route template to the table that backs it. Report
// endpoints aggregate transactions, so they resolve there too.
func TableForRoute(route string) string {
	switch {
	case strings.HasPrefix(route, "/api/categories"):
		return "categories"
	case strings.HasPrefix(route, "/api/budgets"):
		return "budgets"
	case strings.HasPrefix(route, "/api/users"):
		return "users"
	case strings.HasPrefix(route, "/api/recurring"):
		return "recurring_transactions"
	default:
		return "transactions"
	}
}
