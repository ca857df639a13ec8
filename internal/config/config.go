package config

import (
	"os"
	"strings"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Server
	Port            string
	Env             string
	DatabaseURL     string
	ShutdownTimeout time.Duration
	DefaultCurrency string

	// Versioned cache
	CacheDefaultTTL    time.Duration // entry lifetime when the caller passes none
	CacheSweepInterval time.Duration // background expiry sweep cadence; <= 0 disables

	// Response cache (report endpoints)
	ResponseCacheSizeMB  int
	ResponseCacheEntries int
	ResponseCacheTTL     time.Duration

	// Performance middleware
	SlowRequestThreshold time.Duration // requests slower than this trigger query analysis
	AnalysisTTL          time.Duration // memoization window for a route's analysis
	AnalysisTimeout      time.Duration // budget for one introspection query

	// Rate limiting
	EnableRateLimit      bool
	RateLimitGlobal      float64 // requests per second globally
	RateLimitGlobalBurst int
	RateLimitPerIP       float64 // requests per second per client IP
	RateLimitPerIPBurst  int

	// CORS
	CORSAllowedOrigins []string

	// Request validation
	MaxRequestBodyBytes int64

	// Debug
	EnablePprof bool // expose /debug/pprof, off outside development

	// FX rates provider
	RatesBaseURL   string
	RatesCacheTTL  time.Duration
	HTTPMaxRetries int
	HTTPRetryBase  time.Duration
	HTTPTimeout    time.Duration
	LogHTTPRetries bool

	// Recurring transaction scheduler
	SchedulerInterval time.Duration
	DisableScheduler  bool

	// Metrics collector
	CollectorInterval time.Duration

	// Observability
	LogLevel          string
	OTELEnabled       bool
	OTELEndpoint      string
	OTELSampleRate    float64
	SentryDSN         string
	SentryEnvironment string
	SentryRelease     string
	SentrySampleRate  float64
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}

	cached = &Config{
		Port:            utils.GetEnv("PORT", "8000"),
		Env:             strings.TrimSpace(os.Getenv("ENV")),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ShutdownTimeout: utils.GetEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		DefaultCurrency: utils.GetEnv("DEFAULT_CURRENCY", "USD"),

		// Cache defaults mirror the framework the service grew out of:
		// 300 s entry TTL, 5 min sweep.
		CacheDefaultTTL:    time.Duration(utils.GetEnvAsInt("CACHE_DEFAULT_TTL_SECONDS", 300)) * time.Second,
		CacheSweepInterval: utils.GetEnvAsDuration("CACHE_SWEEP_INTERVAL", 5*time.Minute),

		ResponseCacheSizeMB:  utils.GetEnvAsInt("RESPONSE_CACHE_SIZE_MB", 32),
		ResponseCacheEntries: utils.GetEnvAsInt("RESPONSE_CACHE_MAX_ENTRIES", 2048),
		ResponseCacheTTL:     utils.GetEnvAsDuration("RESPONSE_CACHE_TTL", 60*time.Second),

		SlowRequestThreshold: utils.GetEnvAsDuration("SLOW_REQUEST_THRESHOLD", 250*time.Millisecond),
		AnalysisTTL:          utils.GetEnvAsDuration("QUERY_ANALYSIS_TTL", 5*time.Minute),
		AnalysisTimeout:      utils.GetEnvAsDuration("QUERY_ANALYSIS_TIMEOUT", 2*time.Second),

		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),

		MaxRequestBodyBytes: int64(utils.GetEnvAsInt("MAX_REQUEST_BODY_BYTES", 1<<20)),

		EnablePprof: utils.GetEnvAsBool("ENABLE_PPROF", false),

		RatesBaseURL:   utils.GetEnv("RATES_BASE_URL", "https://open.er-api.com/v6"),
		RatesCacheTTL:  utils.GetEnvAsDuration("RATES_CACHE_TTL", time.Hour),
		HTTPMaxRetries: utils.GetEnvAsInt("HTTP_MAX_RETRIES", 3),
		HTTPRetryBase:  time.Duration(utils.GetEnvAsInt("HTTP_RETRY_BASE_MS", 300)) * time.Millisecond,
		HTTPTimeout:    time.Duration(utils.GetEnvAsInt("HTTP_TIMEOUT_MS", 15000)) * time.Millisecond,
		LogHTTPRetries: utils.GetEnvAsBool("LOG_HTTP_RETRIES", false),

		SchedulerInterval: utils.GetEnvAsDuration("SCHEDULER_INTERVAL", time.Minute),
		DisableScheduler:  utils.GetEnvAsBool("DISABLE_SCHEDULER", false),

		CollectorInterval: utils.GetEnvAsDuration("METRICS_COLLECTOR_INTERVAL", 30*time.Second),

		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}

	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.SentryEnvironment == "" {
		if cached.Env != "" {
			cached.SentryEnvironment = cached.Env
		} else {
			cached.SentryEnvironment = "development"
		}
	}

	cached.CORSAllowedOrigins = utils.GetEnvAsSlice("CORS_ALLOWED_ORIGINS",
		[]string{"http://localhost:4200", "http://localhost:3000"}, ",")

	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
