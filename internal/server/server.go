package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/api"
	"github.com/SvetozarP/finance-tracker-server/internal/api/handlers"
	"github.com/SvetozarP/finance-tracker-server/internal/cache"
	"github.com/SvetozarP/finance-tracker-server/internal/collector"
	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/middleware"
	"github.com/SvetozarP/finance-tracker-server/internal/perf"
	"github.com/SvetozarP/finance-tracker-server/internal/rates"
	"github.com/SvetozarP/finance-tracker-server/internal/scheduler"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
)

// Server owns every long-lived piece of the service: the HTTP listener,
// both caches, the alert hub, the metrics collector and the recurring
// transaction scheduler. New wires them, Start runs them, and Start
// returning means everything has been torn down.
type Server struct {
	cfg       *config.Config
	store     *store.Store
	versioned *cache.VersionedCache
	responses *cache.LRUCache
	hub       *handlers.Hub
	scheduler *scheduler.Service
	collector *collector.Collector
	limiter   *middleware.RateLimiter
	http      *http.Server
}

// New assembles the server around an opened store.
func New(cfg *config.Config, st *store.Store) (*Server, error) {
	if cfg == nil {
		cfg = config.Load()
	}

	versioned := cache.NewVersioned(cfg.CacheDefaultTTL, cfg.CacheSweepInterval)
	responses, err := cache.NewLRU(int64(cfg.ResponseCacheSizeMB), int64(cfg.ResponseCacheEntries), cfg.ResponseCacheTTL)
	if err != nil {
		versioned.Close()
		return nil, fmt.Errorf("response cache: %w", err)
	}

	hub := handlers.NewHub()

	sched := scheduler.NewService(st, cfg.SchedulerInterval)
	// Scheduled expenses go through the same budget check as manual writes.
	sched.OnMaterialize(func(ctx context.Context, t store.Transaction) {
		checkBudget(ctx, st, hub, t)
	})

	var limiter *middleware.RateLimiter
	if cfg.EnableRateLimit {
		limiter = middleware.NewRateLimiter(
			cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst,
			cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst)
	}

	s := &Server{
		cfg:       cfg,
		store:     st,
		versioned: versioned,
		responses: responses,
		hub:       hub,
		scheduler: sched,
		collector: collector.New(versioned, responses, st.DB(), st, cfg.CollectorInterval),
		limiter:   limiter,
	}

	router := api.NewRouter(api.Deps{
		Store:       st,
		DB:          st.DB(),
		Versioned:   versioned,
		Responses:   responses,
		Rates:       rates.NewClient(versioned),
		Hub:         hub,
		RateLimiter: limiter,
		Analyzer:    perf.NewAnalyzer(st.DB()),
		StartedAt:   time.Now(),
	}, cfg)

	s.http = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Start runs the background services and the HTTP listener, blocking until
// ctx is cancelled or the listener fails. On cancellation, in-flight
// requests drain for up to the configured shutdown timeout before
// resources are released.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)
	go s.collector.Start(ctx)
	if s.cfg.DisableScheduler {
		logger.Info("Recurring scheduler disabled by configuration")
	} else {
		go s.scheduler.Start(ctx)
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", s.http.Addr, "env", s.cfg.Env)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		s.teardown()
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", "timeout", s.cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	s.teardown()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// teardown stops producers before the hub they publish to, then releases
// the caches.
func (s *Server) teardown() {
	if !s.cfg.DisableScheduler {
		s.scheduler.Stop()
	}
	s.collector.Stop()
	s.hub.Stop()
	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.versioned.Close()
	s.responses.Close()
}

// progressSource is the slice of the store the budget check reads.
type progressSource interface {
	ProgressForCategory(ctx context.Context, categoryID int64, at time.Time) (store.BudgetProgress, error)
}

// checkBudget mirrors the per-write check the transactions API does: an
// expense that pushes its category's budget past the alert threshold
// notifies every WebSocket subscriber.
func checkBudget(ctx context.Context, src progressSource, sink handlers.AlertSink, t store.Transaction) {
	if t.Type != store.TypeExpense || !t.CategoryID.Valid {
		return
	}
	p, err := src.ProgressForCategory(ctx, t.CategoryID.Int64, t.OccurredAt)
	if err != nil {
		// Most categories have no budget; that is not a fault.
		if !errors.Is(err, store.ErrNotFound) {
			logger.WarnContext(ctx, "Budget check failed after materialization",
				"error", err, "category_id", t.CategoryID.Int64)
		}
		return
	}
	if p.ThresholdExceeded {
		sink.BudgetAlert(p)
	}
}
