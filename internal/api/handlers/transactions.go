package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/SvetozarP/finance-tracker-server/internal/apierr"
	"github.com/SvetozarP/finance-tracker-server/internal/cache"
	"github.com/SvetozarP/finance-tracker-server/internal/config"
	"github.com/SvetozarP/finance-tracker-server/internal/logger"
	"github.com/SvetozarP/finance-tracker-server/internal/store"
	"github.com/SvetozarP/finance-tracker-server/internal/utils"
)

// TransactionStore defines the persistence operations the transaction
// endpoints need.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, p store.TransactionParams) (store.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (store.Transaction, error)
	ListTransactions(ctx context.Context, f store.TransactionFilter) ([]store.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, p store.TransactionParams) (store.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	ProgressForCategory(ctx context.Context, categoryID int64, at time.Time) (store.BudgetProgress, error)
}

// AlertSink receives budget-threshold notifications after transaction
// writes. *Hub implements it; a nil sink disables alerting.
type AlertSink interface {
	BudgetAlert(p store.BudgetProgress)
}

// TransactionHandler serves transaction CRUD. Writes invalidate the rendered
// report JSON for the affected months and trigger a budget-threshold check.
type TransactionHandler struct {
	store   TransactionStore
	reports cache.Cache
	alerts  AlertSink
}

// NewTransactionHandler creates a transaction handler. reports and alerts
// may be nil when the response cache or the alert hub is not wired.
func NewTransactionHandler(s TransactionStore, reports cache.Cache, alerts AlertSink) *TransactionHandler {
	return &TransactionHandler{store: s, reports: reports, alerts: alerts}
}

// TransactionResponse is the wire shape of one transaction.
type TransactionResponse struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	AmountCents int64           `json:"amountCents"`
	Amount      string          `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	CategoryID  *int64          `json:"categoryId,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toTransactionResponse(t store.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          t.ID,
		Type:        t.Type,
		AmountCents: t.AmountCents,
		Amount:      utils.FormatCents(t.AmountCents),
		Currency:    t.Currency,
		Description: t.Description,
		OccurredAt:  t.OccurredAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.CategoryID.Valid {
		id := t.CategoryID.Int64
		resp.CategoryID = &id
	}
	if t.Metadata.Valid {
		resp.Metadata = json.RawMessage(t.Metadata.RawMessage)
	}
	return resp
}

// transactionRequest is the create/update body. The amount can arrive as
// integer cents or as a decimal string ("12.50"); the string form wins when
// both are set.
type transactionRequest struct {
	Type        string          `json:"type"`
	AmountCents int64           `json:"amountCents"`
	Amount      string          `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	CategoryID  *int64          `json:"categoryId"`
	OccurredAt  string          `json:"occurredAt"`
	Metadata    json.RawMessage `json:"metadata"`
}

func (req *transactionRequest) toParams(defaultCurrency string) (store.TransactionParams, *apierr.Error) {
	var p store.TransactionParams

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

	if req.CategoryID != nil {
		if *req.CategoryID <= 0 {
			return p, apierr.ValidationInvalidValue("categoryId", "must be a positive id")
		}
		p.CategoryID = sql.NullInt64{Int64: *req.CategoryID, Valid: true}
	}

	p.OccurredAt = time.Now().UTC()
	if req.OccurredAt != "" {
		t, err := parseDate(req.OccurredAt)
		if err != nil {
			return p, apierr.ValidationInvalidValue("occurredAt", "want RFC 3339 or YYYY-MM-DD")
		}
		p.OccurredAt = t
	}

	if len(req.Metadata) > 0 && string(req.Metadata) != "null" {
		if !json.Valid(req.Metadata) {
			return p, apierr.ValidationInvalidValue("metadata", "must be valid JSON")
		}
		p.Metadata = pqtype.NullRawMessage{RawMessage: req.Metadata, Valid: true}
	}

	return p, nil
}

// ListTransactions returns transactions newest first.
// GET /api/transactions?type=expense&categoryId=3&from=2026-03-01&to=2026-03-31&limit=50&offset=0
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := store.TransactionFilter{
		Limit:  parseIntDefault(q.Get("limit"), 50),
		Offset: parseIntDefault(q.Get("offset"), 0),
	}
	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	switch t := q.Get("type"); t {
	case "", store.TypeIncome, store.TypeExpense:
		f.Type = t
	default:
		apierr.WriteErrorWithContext(w, r, apierr.TxnInvalidType(t))
		return
	}

	if v := q.Get("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("categoryId", "must be a positive id"))
			return
		}
		f.CategoryID = id
	}

	if v := q.Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("from", "want RFC 3339 or YYYY-MM-DD"))
			return
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("to", "want RFC 3339 or YYYY-MM-DD"))
			return
		}
		f.To = t
	}

	txns, err := h.store.ListTransactions(r.Context(), f)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to list transactions"))
		return
	}

	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": out,
		"count":        len(out),
		"limit":        f.Limit,
		"offset":       f.Offset,
	})
}

// GetTransaction returns one transaction.
// GET /api/transactions/{id}
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	t, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("transaction"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to fetch transaction", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to fetch transaction"))
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

// CreateTransaction records a money movement.
// POST /api/transactions
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	params, aerr := req.toParams(config.Load().DefaultCurrency)
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}

	t, err := h.store.CreateTransaction(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create transaction", "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to create transaction"))
		return
	}

	h.invalidateReports(t.OccurredAt)
	h.checkBudget(r.Context(), t)
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

// UpdateTransaction overwrites the writable fields of a transaction.
// PUT /api/transactions/{id}
func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	// The previous row decides which months' reports go stale when the
	// transaction moves between months.
	prev, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("transaction"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to fetch transaction", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to fetch transaction"))
		return
	}

	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	params, aerr := req.toParams(config.Load().DefaultCurrency)
	if aerr != nil {
		apierr.WriteErrorWithContext(w, r, aerr)
		return
	}

	t, err := h.store.UpdateTransaction(r.Context(), id, params)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("transaction"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to update transaction", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to update transaction"))
		return
	}

	h.invalidateReports(prev.OccurredAt, t.OccurredAt)
	h.checkBudget(r.Context(), t)
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

// DeleteTransaction removes a transaction.
// DELETE /api/transactions/{id}
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", "must be a positive integer"))
		return
	}

	prev, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("transaction"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to fetch transaction", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to fetch transaction"))
		return
	}

	if err := h.store.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("transaction"))
			return
		}
		logger.ErrorContext(r.Context(), "Failed to delete transaction", "error", err, "id", id)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to delete transaction"))
		return
	}

	h.invalidateReports(prev.OccurredAt)
	w.WriteHeader(http.StatusNoContent)
}

// invalidateReports drops the rendered report JSON for the months the write
// touched; the next read re-renders from the database.
func (h *TransactionHandler) invalidateReports(months ...time.Time) {
	if h.reports == nil {
		return
	}
	seen := make(map[string]bool, len(months))
	for _, m := range months {
		month := utils.FormatMonth(m)
		if seen[month] {
			continue
		}
		seen[month] = true
		h.reports.Delete(reportSummaryKey(month))
		h.reports.Delete(reportByCategoryKey(month))
	}
}

// checkBudget broadcasts an alert when an expense pushes its category's
// budget for that month past the alert threshold.
func (h *TransactionHandler) checkBudget(ctx context.Context, t store.Transaction) {
	if h.alerts == nil || t.Type != store.TypeExpense || !t.CategoryID.Valid {
		return
	}
	p, err := h.store.ProgressForCategory(ctx, t.CategoryID.Int64, t.OccurredAt)
	if err != nil {
		// No budget for the category/month is the common case, not a fault.
		if !errors.Is(err, store.ErrNotFound) {
			logger.WarnContext(ctx, "Budget check failed after transaction write",
				"error", err, "category_id", t.CategoryID.Int64)
		}
		return
	}
	if p.ThresholdExceeded {
		h.alerts.BudgetAlert(p)
	}
}
