package collector

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/cache"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/metrics"
)

// DomainCounts is the slice of the store the collector polls for entity
// gauges. *store.Store satisfies it.
type DomainCounts interface {
	CountTransactionsByType(ctx context.Context) (map[string]int64, error)
	CountCategories(ctx context.Context) (int64, error)
	CountBudgets(ctx context.Context) (int64, error)
	CountActiveRecurring(ctx context.Context) (int64, error)
}

// Collector periodically copies cache counters, DB pool stats, and entity
// counts into Prometheus gauges. Sources left nil are skipped, so partial
// wiring is fine.
type Collector struct {
	versioned *cache.VersionedCache
	response  *cache.LRUCache
	db        *sql.DB
	counts    DomainCounts
	interval  time.Duration
	stop      chan struct{}
	log       *slog.Logger
}

// New creates a collector. A non-positive interval selects 30 seconds.
func New(versioned *cache.VersionedCache, response *cache.LRUCache, db *sql.DB, counts DomainCounts, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Collector{
		versioned: versioned,
		response:  response,
		db:        db,
		counts:    counts,
		interval:  interval,
		stop:      make(chan struct{}),
		log:       logger.WithComponent("collector"),
	}
}

// Start begins the collection loop and blocks until Stop or ctx cancellation.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect(ctx)

	for {
		select {
		case <-ticker.C:
			c.Collect(ctx)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the collection loop.
func (c *Collector) Stop() {
	close(c.stop)
}

// Collect runs one collection pass.
func (c *Collector) Collect(ctx context.Context) {
	c.collectVersionedCache()
	c.collectResponseCache()
	c.collectPool()
	c.collectDomainCounts(ctx)
}

func (c *Collector) collectVersionedCache() {
	if c.versioned == nil {
		return
	}
	s := c.versioned.Stats()
	metrics.CacheHits.Set(float64(s.Hits))
	metrics.CacheMisses.Set(float64(s.Misses))
	metrics.CacheSets.Set(float64(s.Sets))
	metrics.CacheDeletes.Set(float64(s.Deletes))
	metrics.CacheHitRate.Set(s.HitRate)
	metrics.CacheEntries.Set(float64(s.CacheSize))
	metrics.CacheMemoryBytes.Set(float64(s.MemoryUsage))
}

func (c *Collector) collectResponseCache() {
	if c.response == nil {
		return
	}
	s := c.response.Stats()
	metrics.ResponseCacheSize.Set(float64(s.Size))
	metrics.ResponseCacheItems.Set(float64(s.Items))
	metrics.ResponseCacheEvictions.Set(float64(s.Evictions))
}

func (c *Collector) collectPool() {
	if c.db == nil {
		return
	}
	s := c.db.Stats()
	metrics.DBPoolOpenConnections.Set(float64(s.OpenConnections))
	metrics.DBPoolInUse.Set(float64(s.InUse))
	metrics.DBPoolIdle.Set(float64(s.Idle))
}

func (c *Collector) collectDomainCounts(ctx context.Context) {
	if c.counts == nil {
		return
	}

	byType, err := c.counts.CountTransactionsByType(ctx)
	if err != nil {
		c.log.Error("Counting transactions failed", "error", err)
		metrics.MetricsCollectionErrors.WithLabelValues("transactions").Inc()
		metrics.TransactionsTotal.WithLabelValues("income").Set(-1) // Signal stale data
		metrics.TransactionsTotal.WithLabelValues("expense").Set(-1)
	} else {
		for typ, n := range byType {
			metrics.TransactionsTotal.WithLabelValues(typ).Set(float64(n))
		}
	}

	if n, err := c.counts.CountCategories(ctx); err != nil {
		c.log.Error("Counting categories failed", "error", err)
		metrics.MetricsCollectionErrors.WithLabelValues("categories").Inc()
		metrics.CategoriesTotal.Set(-1)
	} else {
		metrics.CategoriesTotal.Set(float64(n))
	}

	if n, err := c.counts.CountBudgets(ctx); err != nil {
		c.log.Error("Counting budgets failed", "error", err)
		metrics.MetricsCollectionErrors.WithLabelValues("budgets").Inc()
		metrics.BudgetsTotal.Set(-1)
	} else {
		metrics.BudgetsTotal.Set(float64(n))
	}

	if n, err := c.counts.CountActiveRecurring(ctx); err != nil {
		c.log.Error("Counting recurring rules failed", "error", err)
		metrics.MetricsCollectionErrors.WithLabelValues("recurring").Inc()
		metrics.RecurringRulesActive.Set(-1)
	} else {
		metrics.RecurringRulesActive.Set(float64(n))
	}
}
