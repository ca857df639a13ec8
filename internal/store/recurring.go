package store

import (
	"context"
	"database/sql"
	"time"
)

// RecurringTransaction is a template the scheduler materializes into real
// transactions on its schedule.
type RecurringTransaction struct {
	ID          int64
	Description string
	Type        string
	AmountCents int64
	Currency    string
	CategoryID  sql.NullInt64
	Schedule    string // "@daily", "@weekly", "@monthly" or "@every <duration>"
	NextRunAt   time.Time
	LastRunAt   sql.NullTime
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecurringParams carries the writable fields for create.
type RecurringParams struct {
	Description string
	Type        string
	AmountCents int64
	Currency    string
	CategoryID  sql.NullInt64
	Schedule    string
	NextRunAt   time.Time
}

const recurringColumns = `id, description, type, amount_cents, currency, category_id,
	schedule, next_run_at, last_run_at, active, created_at, updated_at`

func scanRecurring(row interface{ Scan(...any) error }) (RecurringTransaction, error) {
	var r RecurringTransaction
	err := row.Scan(&r.ID, &r.Description, &r.Type, &r.AmountCents, &r.Currency,
		&r.CategoryID, &r.Schedule, &r.NextRunAt, &r.LastRunAt, &r.Active,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// ListRecurring returns every recurring rule, active first, oldest next-run
// first within each group.
func (s *Store) ListRecurring(ctx context.Context) (out []RecurringTransaction, err error) {
	defer instrument("recurring.list", time.Now(), &err)
	const qstr = `SELECT ` + recurringColumns + ` FROM recurring_transactions
		ORDER BY active DESC, next_run_at`
	rows, err := s.db.QueryContext(ctx, qstr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		r, scanErr := scanRecurring(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		out = append(out, r)
	}
	err = rows.Err()
	return out, err
}

// CreateRecurring inserts a recurring rule and returns the stored row.
func (s *Store) CreateRecurring(ctx context.Context, p RecurringParams) (r RecurringTransaction, err error) {
	defer instrument("recurring.create", time.Now(), &err)
	const stmt = `
		INSERT INTO recurring_transactions (description, type, amount_cents, currency, category_id, schedule, next_run_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + recurringColumns
	row := s.db.QueryRowContext(ctx, stmt, p.Description, p.Type, p.AmountCents,
		p.Currency, p.CategoryID, p.Schedule, p.NextRunAt)
	r, err = scanRecurring(row)
	return r, err
}

// SetRecurringActive toggles a rule without touching its schedule state.
func (s *Store) SetRecurringActive(ctx context.Context, id int64, active bool) (err error) {
	defer instrument("recurring.set_active", time.Now(), &err)
	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDueRecurring returns active rules whose next run is at or before now.
func (s *Store) ListDueRecurring(ctx context.Context, now time.Time) (out []RecurringTransaction, err error) {
	defer instrument("recurring.list_due", time.Now(), &err)
	const qstr = `SELECT ` + recurringColumns + ` FROM recurring_transactions
		WHERE active AND next_run_at <= $1
		ORDER BY next_run_at`
	rows, err := s.db.QueryContext(ctx, qstr, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		r, scanErr := scanRecurring(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		out = append(out, r)
	}
	err = rows.Err()
	return out, err
}

// MarkRecurringRun records a materialization and advances the next run time.
func (s *Store) MarkRecurringRun(ctx context.Context, id int64, ranAt, nextRunAt time.Time) (err error) {
	defer instrument("recurring.mark_run", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `
		UPDATE recurring_transactions
		SET last_run_at = $2, next_run_at = $3, updated_at = now()
		WHERE id = $1`, id, ranAt, nextRunAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActiveRecurring returns the active rule total for the metrics collector.
func (s *Store) CountActiveRecurring(ctx context.Context) (n int64, err error) {
	defer instrument("recurring.count_active", time.Now(), &err)
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recurring_transactions WHERE active`).Scan(&n)
	return n, err
}
