package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/SvetozarP/finance-tracker-server/internal/metrics"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store wraps the database handle with raw-SQL entity methods.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres, verifies the connection and applies pool limits.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an existing handle. Used by tests and cmd/seed.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that need pool stats or raw SQL.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// instrument records the duration of a database operation and counts errors.
// Not-found rows and refused deletes are normal control flow, not errors.
func instrument(op string, start time.Time, errp *error) {
	metrics.DBOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err := *errp; err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrCategoryInUse) {
		metrics.DBOperationErrors.WithLabelValues(op).Inc()
	}
}

// notFound maps sql.ErrNoRows onto the package sentinel.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
