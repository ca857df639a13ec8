package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sqlc-dev/pqtype"
)

// Transaction types. Income adds to the balance, expense subtracts.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction is a single money movement. Amounts are integer cents to keep
// arithmetic exact.
type Transaction struct {
	ID          int64
	Type        string
	AmountCents int64
	Currency    string
	Description string
	CategoryID  sql.NullInt64
	OccurredAt  time.Time
	Metadata    pqtype.NullRawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransactionParams carries the writable fields for create and update.
type TransactionParams struct {
	Type        string
	AmountCents int64
	Currency    string
	Description string
	CategoryID  sql.NullInt64
	OccurredAt  time.Time
	Metadata    pqtype.NullRawMessage
}

// TransactionFilter narrows List. Zero values mean "no constraint".
type TransactionFilter struct {
	Type       string
	CategoryID int64
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// MonthlySummary aggregates one calendar month.
type MonthlySummary struct {
	Month        string `json:"month"`
	IncomeCents  int64  `json:"incomeCents"`
	ExpenseCents int64  `json:"expenseCents"`
	NetCents     int64  `json:"netCents"`
	Count        int64  `json:"count"`
}

// CategorySpend is one row of the by-category breakdown for a month.
type CategorySpend struct {
	CategoryID   int64  `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	SpentCents   int64  `json:"spentCents"`
	Count        int64  `json:"count"`
}

const transactionColumns = `id, type, amount_cents, currency, description, category_id, occurred_at, metadata, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Type, &t.AmountCents, &t.Currency, &t.Description,
		&t.CategoryID, &t.OccurredAt, &t.Metadata, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTransaction inserts a transaction and returns the stored row.
func (s *Store) CreateTransaction(ctx context.Context, p TransactionParams) (t Transaction, err error) {
	defer instrument("transactions.create", time.Now(), &err)
	const stmt = `
		INSERT INTO transactions (type, amount_cents, currency, description, category_id, occurred_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + transactionColumns
	row := s.db.QueryRowContext(ctx, stmt, p.Type, p.AmountCents, p.Currency,
		p.Description, p.CategoryID, p.OccurredAt, p.Metadata)
	t, err = scanTransaction(row)
	return t, err
}

// GetTransaction fetches one transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id int64) (t Transaction, err error) {
	defer instrument("transactions.get", time.Now(), &err)
	const qstr = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err = scanTransaction(s.db.QueryRowContext(ctx, qstr, id))
	err = notFound(err)
	return t, err
}

// ListTransactions returns transactions newest first, narrowed by the filter.
func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter) (out []Transaction, err error) {
	defer instrument("transactions.list", time.Now(), &err)

	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions`)

	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Type != "" {
		conds = append(conds, "type = "+arg(f.Type))
	}
	if f.CategoryID > 0 {
		conds = append(conds, "category_id = "+arg(f.CategoryID))
	}
	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at < "+arg(f.To))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	sb.WriteString(" ORDER BY occurred_at DESC, id DESC")
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	sb.WriteString(" LIMIT " + arg(limit))
	if f.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(f.Offset))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]Transaction, 0, limit)
	for rows.Next() {
		t, scanErr := scanTransaction(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		out = append(out, t)
	}
	err = rows.Err()
	return out, err
}

// UpdateTransaction overwrites the writable fields of a transaction.
func (s *Store) UpdateTransaction(ctx context.Context, id int64, p TransactionParams) (t Transaction, err error) {
	defer instrument("transactions.update", time.Now(), &err)
	const stmt = `
		UPDATE transactions SET
			type = $2,
			amount_cents = $3,
			currency = $4,
			description = $5,
			category_id = $6,
			occurred_at = $7,
			metadata = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + transactionColumns
	row := s.db.QueryRowContext(ctx, stmt, id, p.Type, p.AmountCents, p.Currency,
		p.Description, p.CategoryID, p.OccurredAt, p.Metadata)
	t, err = scanTransaction(row)
	err = notFound(err)
	return t, err
}

// DeleteTransaction removes a transaction, reporting whether it existed.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) (err error) {
	defer instrument("transactions.delete", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
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

// SumForBudget totals expense cents for a category inside [from, to).
// Budget progress runs this against the budget's month window.
func (s *Store) SumForBudget(ctx context.Context, categoryID int64, from, to time.Time) (total int64, err error) {
	defer instrument("transactions.sum_for_budget", time.Now(), &err)
	const qstr = `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE type = 'expense' AND category_id = $1 AND occurred_at >= $2 AND occurred_at < $3`
	err = s.db.QueryRowContext(ctx, qstr, categoryID, from, to).Scan(&total)
	return total, err
}

// MonthlySummaryFor aggregates income, expense and net for [from, to).
func (s *Store) MonthlySummaryFor(ctx context.Context, month string, from, to time.Time) (sum MonthlySummary, err error) {
	defer instrument("transactions.monthly_summary", time.Now(), &err)
	const qstr = `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE type = 'income'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE type = 'expense'), 0),
			COUNT(*)
		FROM transactions
		WHERE occurred_at >= $1 AND occurred_at < $2`
	sum.Month = month
	err = s.db.QueryRowContext(ctx, qstr, from, to).Scan(&sum.IncomeCents, &sum.ExpenseCents, &sum.Count)
	if err != nil {
		return sum, err
	}
	sum.NetCents = sum.IncomeCents - sum.ExpenseCents
	return sum, nil
}

// CategoryBreakdown returns expense totals per category for [from, to),
// largest first. Uncategorized spending is excluded.
func (s *Store) CategoryBreakdown(ctx context.Context, from, to time.Time) (out []CategorySpend, err error) {
	defer instrument("transactions.category_breakdown", time.Now(), &err)
	const qstr = `
		SELECT c.id, c.name, COALESCE(SUM(t.amount_cents), 0), COUNT(t.id)
		FROM categories c
		JOIN transactions t ON t.category_id = c.id
		WHERE t.type = 'expense' AND t.occurred_at >= $1 AND t.occurred_at < $2
		GROUP BY c.id, c.name
		ORDER BY 3 DESC`
	rows, err := s.db.QueryContext(ctx, qstr, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cs CategorySpend
		if err = rows.Scan(&cs.CategoryID, &cs.CategoryName, &cs.SpentCents, &cs.Count); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	err = rows.Err()
	return out, err
}

// CountTransactionsByType returns totals per transaction type for the
// metrics collector.
func (s *Store) CountTransactionsByType(ctx context.Context) (counts map[string]int64, err error) {
	defer instrument("transactions.count_by_type", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM transactions GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts = make(map[string]int64, 2)
	for rows.Next() {
		var typ string
		var n int64
		if err = rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[typ] = n
	}
	err = rows.Err()
	return counts, err
}
