package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/apierr"
	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
	"github.com/SvetozarP/finance-tracker-server/internal/utils"
)

// BudgetStore defines the persistence operations the budget endpoints need.
type BudgetStore interface {
	ListBudgets(ctx context.Context, month string) ([]store.Budget, error)
	GetBudget(ctx context.Context, id int64) (store.Budget, error)
	CreateBudget(ctx context.Context, p store.BudgetParams) (store.Budget, error)
	UpdateBudget(ctx context.Context, id int64, p store.BudgetParams) (store.Budget, error)
	DeleteBudget(ctx context.Context, id int64) error
	BudgetProgressFor(ctx context.Context, id int64) (store.BudgetProgress, error)
}

// BudgetHandler serves budget CRUD and the per-budget progress report.
type BudgetHandler struct {
	store BudgetStore
}

// NewBudgetHandler creates a budget handler.
func NewBudgetHandler(s BudgetStore) *BudgetHandler {
	return &BudgetHandler{store: s}
}

// BudgetResponse is the wire shape of one budget.
type BudgetResponse struct {
	ID             int64     `json:"id"`
	CategoryID     int64     `json:"categoryId"`
	Month          string    `json:"month"`
	LimitCents     int64     `json:"limitCents"`
	Currency       string    `json:"currency"`
	AlertThreshold float64   `json:"alertThreshold"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toBudgetResponse(b store.Budget) BudgetResponse {
	return BudgetResponse{
		ID:             b.ID,
		CategoryID:     b.CategoryID,
		Month:          b.Month,
		LimitCents:     b.LimitCents,
		Currency:       b.Currency,
		AlertThreshold: b.AlertThreshold,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

type budgetRequest struct {
	CategoryID     int64    `json:"categoryId"`
	Month          string   `json:"month"`
	LimitCents     int64    `json:"limitCents"`
	Currency       string   `json:"currency"`
	AlertThreshold *float64 `json:"alertThreshold"`
}

func (req *budgetRequest) toParams(defaultCurrency string) (store.BudgetParams, *apierr.Error) {
	p := store.BudgetParams{
		CategoryID: req.CategoryID,
		LimitCents: req.LimitCents,
		Currency:   utils.NormalizeCurrency(req.Currency, defaultCurrency),
	}
	if p.CategoryID <= 0 {
		return p, apierr.ValidationMissingField("categoryId")
	}

	m, err := utils.ParseMonth(req.Month)
	if err != nil {
		return p, apierr.BudgetInvalidMonth("month must look like 2026-03")
	}
	p.Month = utils.FormatMonth(m)

	if p.LimitCents <= 0 {
		return p, apierr.ValidationInvalidValue("limitCents", "must be a positive number of cents")
	}

	p.AlertThreshold = 0.8
	if req.AlertThreshold != nil {
		t := *req.AlertThreshold
		if t <= 0 || t > 1 {
			return p, apierr.ValidationInvalidValue("alertThreshold", "must be in (0, 1]")
		}
		p.AlertThreshold = t
	}
	return p, nil
}

// ListBudgets returns budgets, optionally narrowed to one month.
// GET /api/budgets?month=2026-03
func (h *BudgetHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	month := ""
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := utils.ParseMonth(raw)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.BudgetInvalidMonth("month must look like 2026-03"))
			return
		}
		month = utils.FormatMonth(m)
	}

	budgets, err := h.store.ListBudgets(r.Context(), month)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list budgets", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to list budgets"))
		return
	}

	out := make([]BudgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": out, "count": len(out)})
}

// GetBudget returns one budget.
// GET /api/budgets/{id}
func (h *BudgetHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	b, err := h.store.GetBudget(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("budget"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to fetch budget", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to fetch budget"))
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}

// CreateBudget caps one category for one month. Duplicate category/month
// pairs conflict.
// POST /api/budgets
func (h *BudgetHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	params, aerr := req.toParams(config.Load().DefaultCurrency)
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}

	b, err := h.store.CreateBudget(r.Context(), params)
	if err != nil {
		if errors.Is(err, store.ErrBudgetExists) {
			apierr.WriteErrorWithContext(w, r, apierr.BudgetExists(params.Month))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to create budget", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to create budget"))
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(b))
}

// UpdateBudget overwrites the writable fields of a budget.
// PUT /api/budgets/{id}
func (h *BudgetHandler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	params, aerr := req.toParams(config.Load().DefaultCurrency)
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}

	b, err := h.store.UpdateBudget(r.Context(), id, params)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("budget"))
		case errors.Is(err, store.ErrBudgetExists):
			apierr.WriteErrorWithContext(w, r, apierr.BudgetExists(params.Month))
		default:
			logger.ErrorContext(r.Context(), "Failed to update budget", "error", err, "id", id)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to update budget"))
		}
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}

// DeleteBudget removes a budget.
// DELETE /api/budgets/{id}
func (h *BudgetHandler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	if err := h.store.DeleteBudget(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("budget"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to delete budget", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to delete budget"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBudgetProgress reports spending against the budget's limit for its
// month.
// GET /api/budgets/{id}/progress
func (h *BudgetHandler) GetBudgetProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	p, err := h.store.BudgetProgressFor(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("budget"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to compute budget progress", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to compute budget progress"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
