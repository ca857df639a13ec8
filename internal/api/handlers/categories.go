package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/apierr"
	"github.com/SvetozarP/finance-tracker-server/internal/cache"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
)

// categoryListKey is the versioned-cache key for the full category listing.
const categoryListKey = "categories:list"

// CategoryStore defines the persistence operations the category endpoints
// need.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]store.Category, error)
	GetCategory(ctx context.Context, id int64) (store.Category, error)
	CreateCategory(ctx context.Context, p store.CategoryParams) (store.Category, error)
	UpdateCategory(ctx context.Context, id int64, p store.CategoryParams) (store.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// CategoryHandler serves category CRUD. The listing is served cache-aside
// through the versioned cache; every write drops the cached listing.
type CategoryHandler struct {
	store CategoryStore
	cache *cache.VersionedCache
}

// NewCategoryHandler creates a category handler.
func NewCategoryHandler(s CategoryStore, c *cache.VersionedCache) *CategoryHandler {
	return &CategoryHandler{store: s, cache: c}
}

// CategoryResponse is the wire shape of one category.
type CategoryResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Color     string    `json:"color,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCategoryResponse(c store.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Kind:      c.Kind,
		Color:     c.Color,
		Icon:      c.Icon,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type categoryRequest struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (req *categoryRequest) toParams() (store.CategoryParams, *apierr.Error) {
	p := store.CategoryParams{
		Name:  sanitizer.SanitizeString(req.Name, 100),
		Kind:  req.Kind,
		Color: sanitizer.SanitizeString(req.Color, 32),
		Icon:  sanitizer.SanitizeString(req.Icon, 64),
	}
	if p.Name == "" {
		return p, apierr.ValidationMissingField("name")
	}
	switch p.Kind {
	case store.TypeIncome, store.TypeExpense:
	default:
		return p, apierr.ValidationInvalidValue("kind", "want income or expense")
	}
	return p, nil
}

// ListCategories returns every category, cache-aside through the versioned
// cache so repeated listings skip the database.
// GET /api/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	v, err := h.cache.GetOrSet(r.Context(), categoryListKey, 0, cache.DefaultVersion,
		func(ctx context.Context) (any, error) {
			cats, err := h.store.ListCategories(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]CategoryResponse, 0, len(cats))
			for _, c := range cats {
				out = append(out, toCategoryResponse(c))
			}
			return out, nil
		})
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list categories", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to list categories"))
		return
	}

	out, ok := v.([]CategoryResponse)
	if !ok {
		logger.ErrorContext(r.Context(), "Unexpected cached category payload", "type", "cache")
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("Failed to list categories"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out, "count": len(out)})
}

// GetCategory returns one category.
// GET /api/categories/{id}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	c, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("category"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to fetch category", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to fetch category"))
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// CreateCategory adds a category.
// POST /api/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	params, aerr := req.toParams()
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}

	c, err := h.store.CreateCategory(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create category", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to create category"))
		return
	}

	h.invalidate()
	writeJSON(w, http.StatusCreated, toCategoryResponse(c))
}

// UpdateCategory overwrites the writable fields of a category.
// PUT /api/categories/{id}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	params, aerr := req.toParams()
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}

	c, err := h.store.UpdateCategory(r.Context(), id, params)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("category"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to update category", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to update category"))
		return
	}

	h.invalidate()
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// DeleteCategory removes a category that nothing references anymore.
// DELETE /api/categories/{id}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	err := h.store.DeleteCategory(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("category"))
		case errors.Is(err, store.ErrCategoryInUse):
			apierr.WriteErrorWithContext(w, r, apierr.CategoryInUse("Category still has transactions, budgets or recurring rules"))
		default:
			logger.ErrorContext(r.Context(), "Failed to delete category", "error", err, "id", id)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to delete category"))
		}
		return
	}

	h.invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// invalidate drops the cached listing after a write.
func (h *CategoryHandler) invalidate() {
	h.cache.DeleteMany([]string{categoryListKey}, cache.DefaultVersion)
}
