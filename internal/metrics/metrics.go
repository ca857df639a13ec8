package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	SlowRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slow_requests_total",
			Help: "Total number of requests exceeding the slow request threshold",
		},
		[]string{"endpoint", "method"},
	)

	// Query performance analysis metrics
	QueryAnalysisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_analysis_total",
			Help: "Total number of slow request query analyses",
		},
		[]string{"outcome"}, // outcome: success, failed, skipped
	)

	QueryAnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "query_analysis_duration_seconds",
			Help:    "Duration of slow request query analyses in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)

	LowEfficiencyWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_low_efficiency_warnings_total",
			Help: "Total number of low index efficiency warnings emitted",
		},
		[]string{"table"},
	)

	// Versioned cache metrics (absolute values polled by the collector)
	CacheHits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "versioned_cache_hits",
			Help: "Cumulative number of versioned cache hits",
		},
	)

	CacheMisses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "versioned_cache_misses",
			Help: "Cumulative number of versioned cache misses",
		},
	)

	CacheSets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "versioned_cache_sets",
			Help: "Cumulative number of versioned cache set operations",
		},
	)

	CacheDeletes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "versioned_cache_deletes",
			Help: "Cumulative number of versioned cache delete operations",
		},
	)

	CacheHitRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "versioned_cache_hit_rate",
			Help: "Versioned cache hit rate as a percentage",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "versioned_cache_entries",
			Help: "Current number of entries in the versioned cache",
		},
	)

	CacheMemoryBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "versioned_cache_memory_bytes",
			Help: "Estimated memory used by versioned cache entries in bytes",
		},
	)

	CacheSweepEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "versioned_cache_sweep_evictions_total",
			Help: "Total number of expired entries removed by the background sweep",
		},
	)

	// Response cache metrics (byte LRU in front of report endpoints)
	ResponseCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"endpoint"},
	)

	ResponseCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total number of response cache misses",
		},
		[]string{"endpoint"},
	)

	ResponseCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "response_cache_size_bytes",
			Help: "Current size of the response cache in bytes",
		},
	)

	ResponseCacheItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "response_cache_items",
			Help: "Current number of items in the response cache",
		},
	)

	ResponseCacheEvictions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "response_cache_evictions",
			Help: "Cumulative number of response cache evictions",
		},
	)

	// Exchange rate client metrics
	RatesFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rates_fetch_total",
			Help: "Total number of exchange rate fetches",
		},
		[]string{"outcome"}, // outcome: success, failed
	)

	RatesHTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rates_http_requests_total",
			Help: "Total number of HTTP requests made to the exchange rate provider",
		},
		[]string{"status"}, // status: success, retry, error
	)

	RatesHTTPRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rates_http_retries_total",
			Help: "Total number of exchange rate HTTP request retries",
		},
	)

	RatesRetryAfterWaits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rates_retry_after_wait_seconds",
			Help:    "Duration of Retry-After waits in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Database operation metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	DBOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation"},
	)

	DBPoolOpenConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_open_connections",
			Help: "Number of open connections in the database pool",
		},
	)

	DBPoolInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_in_use_connections",
			Help: "Number of database connections currently in use",
		},
	)

	DBPoolIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_idle_connections",
			Help: "Number of idle connections in the database pool",
		},
	)

	// Domain gauges
	TransactionsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transactions_total",
			Help: "Total number of transactions by type",
		},
		[]string{"type"}, // type: income, expense
	)

	CategoriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "categories_total",
			Help: "Total number of categories",
		},
	)

	BudgetsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "budgets_total",
			Help: "Total number of budgets",
		},
	)

	RecurringRulesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recurring_rules_active",
			Help: "Number of active recurring transaction rules",
		},
	)

	// Scheduler metrics
	SchedulerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Total number of scheduler passes",
		},
		[]string{"status"}, // status: success, failed
	)

	SchedulerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_run_duration_seconds",
			Help:    "Duration of scheduler passes in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	RecurringMaterialized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recurring_transactions_materialized_total",
			Help: "Total number of transactions materialized from recurring rules",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// Metrics collection error tracking
	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"}, // collector: transactions, categories, budgets, recurring
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent to clients",
		},
	)

	BudgetAlertsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "budget_alerts_sent_total",
			Help: "Total number of budget alerts broadcast to clients",
		},
	)
)
