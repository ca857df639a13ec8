package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/apierr"
	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
	"github.com/SvetozarP/finance-tracker-server/internal/utils"
)

// UserStore defines the persistence operations the user endpoints need.
type UserStore interface {
	ListUsers(ctx context.Context) ([]store.User, error)
	GetUser(ctx context.Context, id int64) (store.User, error)
	CreateUser(ctx context.Context, p store.UserParams) (store.User, error)
	UpdateUser(ctx context.Context, id int64, p store.UserParams) (store.User, error)
}

// UserResponse is the wire shape of one user profile.
type UserResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	DefaultCurrency string    `json:"defaultCurrency"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toUserResponse(u store.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		DefaultCurrency: u.DefaultCurrency,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

type userRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	DefaultCurrency string `json:"defaultCurrency"`
}

func (req *userRequest) toParams() (store.UserParams, *apierr.Error) {
	p := store.UserParams{
		Name:            sanitizer.SanitizeString(req.Name, 100),
		Email:           strings.TrimSpace(req.Email),
		DefaultCurrency: utils.NormalizeCurrency(req.DefaultCurrency, config.Load().DefaultCurrency),
	}
	if p.Name == "" {
		return p, apierr.ValidationMissingField("name")
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return p, apierr.ValidationInvalidValue("email", "must contain @")
	}
	return p, nil
}

// GetUsers returns every user profile.
// GET /api/users
func GetUsers(s UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := s.ListUsers(r.Context())
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to list users", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to list users"))
			return
		}

		out := make([]UserResponse, 0, len(users))
		for _, u := range users {
			out = append(out, toUserResponse(u))
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": out, "count": len(out)})
	}
}

// GetUser returns one user profile.
// GET /api/users/{id}
func GetUser(s UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
			return
		}

		u, err := s.GetUser(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("user"))
				return
			}
			logger.ErrorContext(r.Context(), "Failed to fetch user", "error", err, "id", id)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to fetch user"))
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// CreateUser adds a user profile.
// POST /api/users
func CreateUser(s UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		params, aerr := req.toParams()
		if aerr != nil {
			apierr.WriteErrorWithContext(w, r, aerr)
			return
		}

		u, err := s.CreateUser(r.Context(), params)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to create user", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to create user"))
			return
		}
		writeJSON(w, http.StatusCreated, toUserResponse(u))
	}
}

// UpdateUser overwrites the writable fields of a user profile.
// PUT /api/users/{id}
func UpdateUser(s UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
			return
		}

		var req userRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		params, aerr := req.toParams()
		if aerr != nil {
			apierr.WriteErrorWithContext(w, r, aerr)
			return
		}

		u, err := s.UpdateUser(r.Context(), id, params)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("user"))
				return
			}
			logger.ErrorContext(r.Context(), "Failed to update user", "error", err, "id", id)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to update user"))
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}
