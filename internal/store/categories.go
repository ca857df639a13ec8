package store

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
)

// ErrCategoryInUse is returned when deleting a category that transactions,
// budgets or recurring rules still reference.
var ErrCategoryInUse = errors.New("store: category in use")

// Category groups transactions for budgeting and reporting.
type Category struct {
	ID        int64
	Name      string
	Kind      string
	Color     string
	Icon      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryParams carries the writable fields for create and update.
type CategoryParams struct {
	Name  string
	Kind  string
	Color string
	Icon  string
}

const categoryColumns = `id, name, kind, color, icon, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Kind, &c.Color, &c.Icon, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListCategories returns every category ordered by name.
func (s *Store) ListCategories(ctx context.Context) (out []Category, err error) {
	defer instrument("categories.list", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		c, scanErr := scanCategory(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		out = append(out, c)
	}
	err = rows.Err()
	return out, err
}

// GetCategory fetches one category by id.
func (s *Store) GetCategory(ctx context.Context, id int64) (c Category, err error) {
	defer instrument("categories.get", time.Now(), &err)
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err = scanCategory(row)
	err = notFound(err)
	return c, err
}

// CreateCategory inserts a category and returns the stored row.
func (s *Store) CreateCategory(ctx context.Context, p CategoryParams) (c Category, err error) {
	defer instrument("categories.create", time.Now(), &err)
	const stmt = `
		INSERT INTO categories (name, kind, color, icon)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + categoryColumns
	c, err = scanCategory(s.db.QueryRowContext(ctx, stmt, p.Name, p.Kind, p.Color, p.Icon))
	return c, err
}

// UpdateCategory overwrites the writable fields of a category.
func (s *Store) UpdateCategory(ctx context.Context, id int64, p CategoryParams) (c Category, err error) {
	defer instrument("categories.update", time.Now(), &err)
	const stmt = `
		UPDATE categories SET name = $2, kind = $3, color = $4, icon = $5, updated_at = now()
		WHERE id = $1
		RETURNING ` + categoryColumns
	c, err = scanCategory(s.db.QueryRowContext(ctx, stmt, id, p.Name, p.Kind, p.Color, p.Icon))
	err = notFound(err)
	return c, err
}

// DeleteCategory removes a category. Foreign key violations surface as
// ErrCategoryInUse so handlers can report a conflict instead of a 500.
func (s *Store) DeleteCategory(ctx context.Context, id int64) (err error) {
	defer instrument("categories.delete", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return ErrCategoryInUse
		}
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

// CountCategories returns the category total for the metrics collector.
func (s *Store) CountCategories(ctx context.Context) (n int64, err error) {
	defer instrument("categories.count", time.Now(), &err)
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n)
	return n, err
}
