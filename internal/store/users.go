package store

import (
	"context"
	"time"
)

// User is a profile with display preferences. The app is single-tenant and
// unauthenticated; users exist so the frontend can switch profiles.
type User struct {
	ID              int64
	Name            string
	Email           string
	DefaultCurrency string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserParams carries the writable fields for create and update.
type UserParams struct {
	Name            string
	Email           string
	DefaultCurrency string
}

const userColumns = `id, name, email, default_currency, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.DefaultCurrency, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) (out []User, err error) {
	defer instrument("users.list", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		out = append(out, u)
	}
	err = rows.Err()
	return out, err
}

// GetUser fetches one user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (u User, err error) {
	defer instrument("users.get", time.Now(), &err)
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err = scanUser(row)
	err = notFound(err)
	return u, err
}

// CreateUser inserts a user and returns the stored row.
func (s *Store) CreateUser(ctx context.Context, p UserParams) (u User, err error) {
	defer instrument("users.create", time.Now(), &err)
	const stmt = `
		INSERT INTO users (name, email, default_currency)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	u, err = scanUser(s.db.QueryRowContext(ctx, stmt, p.Name, p.Email, p.DefaultCurrency))
	return u, err
}

// UpdateUser overwrites the writable fields of a user.
func (s *Store) UpdateUser(ctx context.Context, id int64, p UserParams) (u User, err error) {
	defer instrument("users.update", time.Now(), &err)
	const stmt = `
		UPDATE users SET name = $2, email = $3, default_currency = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err = scanUser(s.db.QueryRowContext(ctx, stmt, id, p.Name, p.Email, p.DefaultCurrency))
	err = notFound(err)
	return u, err
}
