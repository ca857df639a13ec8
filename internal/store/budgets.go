package store

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/SvetozarP/finance-tracker-server/internal/utils"
)

// ErrBudgetExists is returned when a budget for the category/month pair
// already exists.
var ErrBudgetExists = errors.New("store: budget exists")

// Budget caps spending for one category in one calendar month.
type Budget struct {
	ID             int64
	CategoryID     int64
	Month          string // "YYYY-MM"
	LimitCents     int64
	Currency       string
	AlertThreshold float64 // 0..1 fraction of the limit that triggers an alert
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BudgetParams carries the writable fields for create and update.
type BudgetParams struct {
	CategoryID     int64
	Month          string
	LimitCents     int64
	Currency       string
	AlertThreshold float64
}

// BudgetProgress reports spending against one budget's limit.
type BudgetProgress struct {
	BudgetID          int64   `json:"budgetId"`
	CategoryID        int64   `json:"categoryId"`
	CategoryName      string  `json:"categoryName"`
	Month             string  `json:"month"`
	LimitCents        int64   `json:"limitCents"`
	SpentCents        int64   `json:"spentCents"`
	Ratio             float64 `json:"ratio"`
	AlertThreshold    float64 `json:"alertThreshold"`
	ThresholdExceeded bool    `json:"thresholdExceeded"`
}

const budgetColumns = `id, category_id, month, limit_cents, currency, alert_threshold, created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.CategoryID, &b.Month, &b.LimitCents, &b.Currency,
		&b.AlertThreshold, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// ListBudgets returns budgets newest month first. A non-empty month narrows
// the listing to that month.
func (s *Store) ListBudgets(ctx context.Context, month string) (out []Budget, err error) {
	defer instrument("budgets.list", time.Now(), &err)

	qstr := `SELECT ` + budgetColumns + ` FROM budgets ORDER BY month DESC, id`
	args := []any{}
	if month != "" {
		qstr = `SELECT ` + budgetColumns + ` FROM budgets WHERE month = $1 ORDER BY id`
		args = append(args, month)
	}

	rows, err := s.db.QueryContext(ctx, qstr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		b, scanErr := scanBudget(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		out = append(out, b)
	}
	err = rows.Err()
	return out, err
}

// GetBudget fetches one budget by id.
func (s *Store) GetBudget(ctx context.Context, id int64) (b Budget, err error) {
	defer instrument("budgets.get", time.Now(), &err)
	row := s.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id)
	b, err = scanBudget(row)
	err = notFound(err)
	return b, err
}

// CreateBudget inserts a budget. A duplicate category/month pair surfaces as
// ErrBudgetExists.
func (s *Store) CreateBudget(ctx context.Context, p BudgetParams) (b Budget, err error) {
	defer instrument("budgets.create", time.Now(), &err)
	const stmt = `
		INSERT INTO budgets (category_id, month, limit_cents, currency, alert_threshold)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + budgetColumns
	row := s.db.QueryRowContext(ctx, stmt, p.CategoryID, p.Month, p.LimitCents, p.Currency, p.AlertThreshold)
	b, err = scanBudget(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			err = ErrBudgetExists
		}
	}
	return b, err
}

// UpdateBudget overwrites the writable fields of a budget. Moving it onto a
// category/month pair that already has a budget surfaces as ErrBudgetExists.
func (s *Store) UpdateBudget(ctx context.Context, id int64, p BudgetParams) (b Budget, err error) {
	defer instrument("budgets.update", time.Now(), &err)
	const stmt = `
		UPDATE budgets SET
			category_id = $2, month = $3, limit_cents = $4, currency = $5,
			alert_threshold = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + budgetColumns
	row := s.db.QueryRowContext(ctx, stmt, id, p.CategoryID, p.Month, p.LimitCents, p.Currency, p.AlertThreshold)
	b, err = scanBudget(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return b, ErrBudgetExists
		}
	}
	err = notFound(err)
	return b, err
}

// DeleteBudget removes a budget, reporting whether it existed.
func (s *Store) DeleteBudget(ctx context.Context, id int64) (err error) {
	defer instrument("budgets.delete", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, id)
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

// BudgetProgressFor computes spending against the budget's month window.
func (s *Store) BudgetProgressFor(ctx context.Context, id int64) (p BudgetProgress, err error) {
	defer instrument("budgets.progress", time.Now(), &err)

	const qstr = `SELECT b.id, b.category_id, c.name, b.month, b.limit_cents, b.alert_threshold
		FROM budgets b JOIN categories c ON c.id = b.category_id
		WHERE b.id = $1`
	err = s.db.QueryRowContext(ctx, qstr, id).Scan(&p.BudgetID, &p.CategoryID,
		&p.CategoryName, &p.Month, &p.LimitCents, &p.AlertThreshold)
	if err != nil {
		err = notFound(err)
		return p, err
	}

	monthStart, err := utils.ParseMonth(p.Month)
	if err != nil {
		return p, err
	}
	from, to := utils.MonthRange(monthStart)
	p.SpentCents, err = s.SumForBudget(ctx, p.CategoryID, from, to)
	if err != nil {
		return p, err
	}

	if p.LimitCents > 0 {
		p.Ratio = float64(p.SpentCents) / float64(p.LimitCents)
	}
	p.ThresholdExceeded = p.Ratio >= p.AlertThreshold
	return p, nil
}

// ProgressForCategory finds the budget covering a category in the month of
// the given time and computes its progress. Transaction writes use this to
// decide whether to broadcast an alert. ErrNotFound means no budget covers
// the category for that month.
func (s *Store) ProgressForCategory(ctx context.Context, categoryID int64, at time.Time) (BudgetProgress, error) {
	month := utils.FormatMonth(at)
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM budgets WHERE category_id = $1 AND month = $2`, categoryID, month).Scan(&id)
	if err != nil {
		return BudgetProgress{}, notFound(err)
	}
	return s.BudgetProgressFor(ctx, id)
}

// CountBudgets returns the budget total for the metrics collector.
func (s *Store) CountBudgets(ctx context.Context) (n int64, err error) {
	defer instrument("budgets.count", time.Now(), &err)
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM budgets`).Scan(&n)
	return n, err
}
