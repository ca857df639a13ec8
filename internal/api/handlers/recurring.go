package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/SvetozarP/finance-tracker-server/internal/apierr"
	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/scheduler"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
	"github.com/SvetozarP/finance-tracker-server/internal/utils"
)

// RecurringStore defines the persistence operations the recurring-rule
// endpoints need.
type RecurringStore interface {
	ListRecurring(ctx context.Context) ([]store.RecurringTransaction, error)
	CreateRecurring(ctx context.Context, p store.RecurringParams) (store.RecurringTransaction, error)
	SetRecurringActive(ctx context.Context, id int64, active bool) error
}

// RecurringHandler manages recurring transaction rules. The scheduler owns
// materialization; these endpoints only create, list and toggle rules.
type RecurringHandler struct {
	store RecurringStore
}

// NewRecurringHandler creates a recurring-rule handler.
func NewRecurringHandler(s RecurringStore) *RecurringHandler {
	return &RecurringHandler{store: s}
}

// RecurringResponse is the wire shape of one recurring rule.
type RecurringResponse struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	AmountCents int64      `json:"amountCents"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	CategoryID  *int64     `json:"categoryId,omitempty"`
	Schedule    string     `json:"schedule"`
	NextRunAt   time.Time  `json:"nextRunAt"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toRecurringResponse(r store.RecurringTransaction) RecurringResponse {
	resp := RecurringResponse{
		ID:          r.ID,
		Description: r.Description,
		Type:        r.Type,
		AmountCents: r.AmountCents,
		Amount:      utils.FormatCents(r.AmountCents),
		Currency:    r.Currency,
		Schedule:    r.Schedule,
		NextRunAt:   r.NextRunAt,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.CategoryID.Valid {
		id := r.CategoryID.Int64
		resp.CategoryID = &id
	}
	if r.LastRunAt.Valid {
		t := r.LastRunAt.Time
		resp.LastRunAt = &t
	}
	return resp
}

type recurringRequest struct {
	Description string `json:"description"`
	Type        string `json:"type"`
	AmountCents int64  `json:"amountCents"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	CategoryID  *int64 `json:"categoryId"`
	Schedule    string `json:"schedule"`
}

func (req *recurringRequest) toParams(defaultCurrency string) (store.RecurringParams, *apierr.Error) {
	var p store.RecurringParams

	switch req.Type {
	case store.TypeIncome, store.TypeExpense:
		p.Type = req.Type
	default:
		return p, apierr.TxnInvalidType(req.Type)
	}

	p.AmountCents = req.AmountCents
	if req.Amount != "" {
		cents, err := utils.ParseCents(req.Amount)
		if err != nil {
			return p, apierr.TxnInvalidAmount(err.Error())
		}
		p.AmountCents = cents
	}
	if p.AmountCents <= 0 {
		return p, apierr.TxnInvalidAmount("amount must be a positive number of cents")
	}

	p.Currency = utils.NormalizeCurrency(req.Currency, defaultCurrency)
	p.Description = sanitizer.SanitizeString(req.Description, 500)
	if p.Description == "" {
		return p, apierr.ValidationMissingField("description")
	}

	if req.CategoryID != nil {
		if *req.CategoryID <= 0 {
			return p, apierr.ValidationInvalidValue("categoryId", "must be a positive id")
		}
		p.CategoryID = sql.NullInt64{Int64: *req.CategoryID, Valid: true}
	}

	if err := scheduler.ValidateSchedule(req.Schedule); err != nil {
		return p, apierr.ValidationInvalidValue("schedule", err.Error())
	}
	p.Schedule = req.Schedule

	// The first materialization happens one period from now.
	next, err := scheduler.NextRun(req.Schedule, time.Now().UTC())
	if err != nil {
		return p, apierr.ValidationInvalidValue("schedule", err.Error())
	}
	p.NextRunAt = next

	return p, nil
}

// ListRecurring returns every recurring rule, active first.
// GET /api/recurring
func (h *RecurringHandler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListRecurring(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list recurring rules", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to list recurring rules"))
		return
	}

	out := make([]RecurringResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRecurringResponse(rule))
	}
	writeJSON(w, http.StatusOK, map[string]any{"recurring": out, "count": len(out)})
}

// CreateRecurring adds a recurring rule. The scheduler picks it up on its
// next pass once the rule's first run time arrives.
// POST /api/recurring
func (h *RecurringHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	params, aerr := req.toParams(config.Load().DefaultCurrency)
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}

	rule, err := h.store.CreateRecurring(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create recurring rule", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to create recurring rule"))
		return
	}
	writeJSON(w, http.StatusCreated, toRecurringResponse(rule))
}

// SetRecurringActive pauses or resumes a rule without losing its schedule
// position.
// PUT /api/recurring/{id}/active
func (h *RecurringHandler) SetRecurringActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	var req struct {
		Active *bool `json:"active"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("active"))
		return
	}

	if err := h.store.SetRecurringActive(r.Context(), id, *req.Active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("recurring rule"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to toggle recurring rule", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to toggle recurring rule"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": *req.Active})
}
