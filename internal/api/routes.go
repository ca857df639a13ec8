package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SvetozarP/finance-tracker-server/internal/api/handlers"
	"github.com/SvetozarP/finance-tracker-server/internal/cache"
	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/middleware"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
)

// Deps carries everything the router wires into handlers. Optional fields
// may stay nil; the affected endpoints then degrade the way their handlers
// document.
type Deps struct {
	Store       *store.Store
	DB          *sql.DB
	Versioned   *cache.VersionedCache
	Responses   cache.Cache
	Rates       handlers.RateSource
	Hub         *handlers.Hub
	RateLimiter *middleware.RateLimiter
	Analyzer    middleware.QueryAnalyzer
	StartedAt   time.Time
}

// NewRouter builds the HTTP surface: middleware chain, the /api REST routes,
// health and readiness probes, Prometheus metrics, the cache admin endpoints
// and the budget alert WebSocket.
func NewRouter(d Deps, cfg *config.Config) *mux.Router {
	if cfg == nil {
		cfg = config.Load()
	}
	if d.StartedAt.IsZero() {
		d.StartedAt = time.Now()
	}

	r := mux.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RecoverWithSentry)
	r.Use(middleware.SecurityHeaders)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	r.Use(middleware.CORS(cors))

	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Limit)
	}
	r.Use(middleware.BodyLimit(cfg.MaxRequestBodyBytes))
	r.Use(middleware.Compress)

	perf := middleware.NewPerformance(d.Versioned, d.Analyzer, cfg)
	r.Use(perf.Middleware)

	// mux runs Use middleware only on matched routes, and OPTIONS never
	// matches the method-scoped routes below. This catch-all gives
	// preflight requests a match so the CORS middleware can answer them.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(
		func(http.ResponseWriter, *http.Request) {})

	// Probes and operational endpoints live outside /api.
	var pinger handlers.Pinger
	if d.Store != nil {
		pinger = d.Store
	}
	r.HandleFunc("/healthz", handlers.Health).Methods("GET")
	r.HandleFunc("/readyz", handlers.Ready(pinger)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	if cfg.EnablePprof {
		r.PathPrefix("/debug/pprof/").Handler(handlers.Pprof())
	}
	if d.Hub != nil {
		r.HandleFunc("/ws/alerts", handlers.ServeAlerts(d.Hub)).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Transactions. Writes invalidate the cached reports for the affected
	// months and feed the budget alert check.
	var alerts handlers.AlertSink
	if d.Hub != nil {
		alerts = d.Hub
	}
	txns := handlers.NewTransactionHandler(d.Store, d.Responses, alerts)
	api.HandleFunc("/transactions", txns.ListTransactions).Methods("GET")
	api.HandleFunc("/transactions", txns.CreateTransaction).Methods("POST")
	api.HandleFunc("/transactions/{id}", txns.GetTransaction).Methods("GET")
	api.HandleFunc("/transactions/{id}", txns.UpdateTransaction).Methods("PUT")
	api.HandleFunc("/transactions/{id}", txns.DeleteTransaction).Methods("DELETE")

	// Categories, listing served cache-aside through the versioned cache.
	cats := handlers.NewCategoryHandler(d.Store, d.Versioned)
	api.HandleFunc("/categories", cats.ListCategories).Methods("GET")
	api.HandleFunc("/categories", cats.CreateCategory).Methods("POST")
	api.HandleFunc("/categories/{id}", cats.GetCategory).Methods("GET")
	api.HandleFunc("/categories/{id}", cats.UpdateCategory).Methods("PUT")
	api.HandleFunc("/categories/{id}", cats.DeleteCategory).Methods("DELETE")

	// Budgets and per-budget progress.
	budgets := handlers.NewBudgetHandler(d.Store)
	api.HandleFunc("/budgets", budgets.ListBudgets).Methods("GET")
	api.HandleFunc("/budgets", budgets.CreateBudget).Methods("POST")
	api.HandleFunc("/budgets/{id}", budgets.GetBudget).Methods("GET")
	api.HandleFunc("/budgets/{id}", budgets.UpdateBudget).Methods("PUT")
	api.HandleFunc("/budgets/{id}", budgets.DeleteBudget).Methods("DELETE")
	api.HandleFunc("/budgets/{id}/progress", budgets.GetBudgetProgress).Methods("GET")

	// Users.
	api.HandleFunc("/users", handlers.GetUsers(d.Store)).Methods("GET")
	api.HandleFunc("/users", handlers.CreateUser(d.Store)).Methods("POST")
	api.HandleFunc("/users/{id}", handlers.GetUser(d.Store)).Methods("GET")
	api.HandleFunc("/users/{id}", handlers.UpdateUser(d.Store)).Methods("PUT")

	// Recurring rules. The scheduler materializes them; the API manages them.
	recurring := handlers.NewRecurringHandler(d.Store)
	api.HandleFunc("/recurring", recurring.ListRecurring).Methods("GET")
	api.HandleFunc("/recurring", recurring.CreateRecurring).Methods("POST")
	api.HandleFunc("/recurring/{id}/active", recurring.SetRecurringActive).Methods("PUT")

	// Reports, memoized in the response cache; ETag gives conditional 304s
	// on top of the rendered JSON.
	reports := handlers.NewReportHandler(d.Store, d.Responses)
	api.Handle("/reports/summary",
		middleware.ETag(http.HandlerFunc(reports.GetMonthlySummary))).Methods("GET")
	api.Handle("/reports/by-category",
		middleware.ETag(http.HandlerFunc(reports.GetByCategoryReport))).Methods("GET")

	// FX rates.
	rates := handlers.NewRatesHandler(d.Rates)
	api.HandleFunc("/rates", rates.GetLatestRates).Methods("GET")

	// Status and runtime settings.
	api.HandleFunc("/status", handlers.Status(d.DB, d.Versioned, d.Responses, d.StartedAt)).Methods("GET")
	settings := handlers.NewSettingsHandler(d.Store)
	api.HandleFunc("/settings", settings.GetSettings).Methods("GET")
	api.HandleFunc("/settings/{key}", settings.PutSetting).Methods("PUT")

	// Cache administration.
	admin := handlers.NewCacheAdminHandler(d.Versioned)
	api.HandleFunc("/admin/cache/stats", admin.GetStats).Methods("GET")
	api.HandleFunc("/admin/cache/info", admin.GetInfo).Methods("GET")
	api.HandleFunc("/admin/cache", admin.Invalidate).Methods("DELETE")

	return r
}
