package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/metrics"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
)

// RecurringStore is the slice of the store the scheduler needs.
type RecurringStore interface {
	ListDueRecurring(ctx context.Context, now time.Time) ([]store.RecurringTransaction, error)
	CreateTransaction(ctx context.Context, p store.TransactionParams) (store.Transaction, error)
	MarkRecurringRun(ctx context.Context, id int64, ranAt, nextRunAt time.Time) error
}

// Service materializes due recurring rules into real transactions on a
// fixed interval.
type Service struct {
	store    RecurringStore
	interval time.Duration
	notify   func(context.Context, store.Transaction)
	stop     chan struct{}
	log      *slog.Logger
}

// NewService creates a scheduler that polls for due rules every interval.
func NewService(st RecurringStore, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Service{
		store:    st,
		interval: interval,
		stop:     make(chan struct{}),
		log:      logger.WithComponent("scheduler"),
	}
}

// OnMaterialize registers a hook invoked for every transaction the
// scheduler creates. The server wires the budget-alert check here so
// scheduled expenses trigger the same alerts as manual ones.
func (s *Service) OnMaterialize(fn func(context.Context, store.Transaction)) {
	s.notify = fn
}

// Start begins the scheduler loop. It blocks until ctx is cancelled or
// Stop is called, so run it in its own goroutine.
func (s *Service) Start(ctx context.Context) {
	s.log.Info("Starting recurring transaction scheduler", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopped by context")
			return
		case <-s.stop:
			s.log.Info("Scheduler stopped by signal")
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

// Stop gracefully stops the scheduler.
func (s *Service) Stop() {
	close(s.stop)
}

// runPass finds every due rule and materializes it.
func (s *Service) runPass(ctx context.Context) {
	start := time.Now()
	status := "success"
	defer func() {
		metrics.SchedulerRunDuration.Observe(time.Since(start).Seconds())
		metrics.SchedulerRunsTotal.WithLabelValues(status).Inc()
	}()

	due, err := s.store.ListDueRecurring(ctx, time.Now())
	if err != nil {
		s.log.Error("Failed to list due recurring rules", "error", err)
		status = "failed"
		return
	}

	if len(due) == 0 {
		return
	}

	s.log.Info("Materializing due recurring rules", "count", len(due))

	for _, rule := range due {
		if err := s.materialize(ctx, rule); err != nil {
			s.log.Error("Failed to materialize recurring rule",
				"rule_id", rule.ID,
				"description", rule.Description,
				"error", err)
			status = "failed"
		}
	}
}

// materialize books one transaction from a rule and advances its schedule.
func (s *Service) materialize(ctx context.Context, rule store.RecurringTransaction) error {
	ranAt := time.Now()

	nextRunAt, err := NextRun(rule.Schedule, ranAt)
	if err != nil {
		// Validation keeps bad schedules out of the table; if one slips
		// through, leave the rule untouched so the operator can see it.
		return fmt.Errorf("parse schedule %q: %w", rule.Schedule, err)
	}

	txn, err := s.store.CreateTransaction(ctx, store.TransactionParams{
		Type:        rule.Type,
		AmountCents: rule.AmountCents,
		Currency:    rule.Currency,
		Description: rule.Description,
		CategoryID:  rule.CategoryID,
		// Book at the scheduled moment, not when the pass happened to run.
		OccurredAt: rule.NextRunAt,
		Metadata: pqtype.NullRawMessage{
			RawMessage: []byte(fmt.Sprintf(`{"recurring_id":%d}`, rule.ID)),
			Valid:      true,
		},
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	metrics.RecurringMaterialized.Inc()

	if err := s.store.MarkRecurringRun(ctx, rule.ID, ranAt, nextRunAt); err != nil {
		return fmt.Errorf("advance rule: %w", err)
	}

	s.log.Info("Materialized recurring rule",
		"rule_id", rule.ID,
		"transaction_id", txn.ID,
		"next_run", nextRunAt.Format(time.RFC3339))

	if s.notify != nil {
		s.notify(ctx, txn)
	}

	return nil
}
