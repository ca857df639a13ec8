package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/SvetozarP/finance-tracker-server/internal/store"
)

type fakeBudgetStore struct {
	budgets  map[int64]store.Budget
	nextID   int64
	progress store.BudgetProgress
}

func newFakeBudgetStore() *fakeBudgetStore {
	return &fakeBudgetStore{budgets: make(map[int64]store.Budget), nextID: 1}
}

func (f *fakeBudgetStore) ListBudgets(ctx context.Context, month string) ([]store.Budget, error) {
	out := make([]store.Budget, 0, len(f.budgets))
	for _, b := range f.budgets {
		if month != "" && b.Month != month {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBudgetStore) GetBudget(ctx context.Context, id int64) (store.Budget, error) {
	b, ok := f.budgets[id]
	if !ok {
		return store.Budget{}, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeBudgetStore) CreateBudget(ctx context.Context, p store.BudgetParams) (store.Budget, error) {
	for _, b := range f.budgets {
		if b.CategoryID == p.CategoryID && b.Month == p.Month {
			return store.Budget{}, store.ErrBudgetExists
		}
	}
	b := store.Budget{
		ID:             f.nextID,
		CategoryID:     p.CategoryID,
		Month:          p.Month,
		LimitCents:     p.LimitCents,
		Currency:       p.Currency,
		AlertThreshold: p.AlertThreshold,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	f.budgets[b.ID] = b
	f.nextID++
	return b, nil
}

func (f *fakeBudgetStore) UpdateBudget(ctx context.Context, id int64, p store.BudgetParams) (store.Budget, error) {
	b, ok := f.budgets[id]
	if !ok {
		return store.Budget{}, store.ErrNotFound
	}
	for otherID, other := range f.budgets {
		if otherID != id && other.CategoryID == p.CategoryID && other.Month == p.Month {
			return store.Budget{}, store.ErrBudgetExists
		}
	}
	b.CategoryID = p.CategoryID
	b.Month = p.Month
	b.LimitCents = p.LimitCents
	b.Currency = p.Currency
	b.AlertThreshold = p.AlertThreshold
	b.UpdatedAt = time.Now()
	f.budgets[id] = b
	return b, nil
}

func (f *fakeBudgetStore) DeleteBudget(ctx context.Context, id int64) error {
	if _, ok := f.budgets[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.budgets, id)
	return nil
}

func (f *fakeBudgetStore) BudgetProgressFor(ctx context.Context, id int64) (store.BudgetProgress, error) {
	if _, ok := f.budgets[id]; !ok {
		return store.BudgetProgress{}, store.ErrNotFound
	}
	return f.progress, nil
}

func errCode(t *testing.T, body []byte) string {
	t.Helper()
	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return out.Error.Code
}

func TestCreateBudget(t *testing.T) {
	h := NewBudgetHandler(newFakeBudgetStore())

	rr := postJSON(t, h.CreateBudget, "/api/budgets",
		`{"categoryId":3,"month":"2026-03","limitCents":50000}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var out BudgetResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.CategoryID != 3 || out.Month != "2026-03" || out.LimitCents != 50000 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if out.AlertThreshold != 0.8 {
		t.Errorf("expected default threshold 0.8, got %v", out.AlertThreshold)
	}
}

func TestCreateBudget_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"missing category", `{"month":"2026-03","limitCents":100}`, "VALIDATION_MISSING_FIELD"},
		{"bad month", `{"categoryId":3,"month":"March 2026","limitCents":100}`, "BUDGET_INVALID_MONTH"},
		{"zero limit", `{"categoryId":3,"month":"2026-03","limitCents":0}`, "VALIDATION_INVALID_VALUE"},
		{"threshold too high", `{"categoryId":3,"month":"2026-03","limitCents":100,"alertThreshold":1.5}`, "VALIDATION_INVALID_VALUE"},
		{"threshold zero", `{"categoryId":3,"month":"2026-03","limitCents":100,"alertThreshold":0}`, "VALIDATION_INVALID_VALUE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBudgetHandler(newFakeBudgetStore())
			rr := postJSON(t, h.CreateBudget, "/api/budgets", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d, body: %s", rr.Code, rr.Body.String())
			}
			if got := errCode(t, rr.Body.Bytes()); got != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, got)
			}
		})
	}
}

func TestCreateBudget_Duplicate(t *testing.T) {
	h := NewBudgetHandler(newFakeBudgetStore())

	body := `{"categoryId":3,"month":"2026-03","limitCents":50000}`
	postJSON(t, h.CreateBudget, "/api/budgets", body)

	rr := postJSON(t, h.CreateBudget, "/api/budgets", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d, body: %s", rr.Code, rr.Body.String())
	}
	if got := errCode(t, rr.Body.Bytes()); got != "BUDGET_EXISTS" {
		t.Errorf("expected BUDGET_EXISTS, got %s", got)
	}
}

func TestUpdateBudget_MovesOntoExistingPair(t *testing.T) {
	fs := newFakeBudgetStore()
	h := NewBudgetHandler(fs)

	postJSON(t, h.CreateBudget, "/api/budgets", `{"categoryId":3,"month":"2026-03","limitCents":100}`)
	postJSON(t, h.CreateBudget, "/api/budgets", `{"categoryId":4,"month":"2026-03","limitCents":100}`)

	// Moving budget 2 onto category 3's March slot collides with budget 1.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/budgets/2",
		bytes.NewBufferString(`{"categoryId":3,"month":"2026-03","limitCents":200}`))
	req = mux.SetURLVars(req, map[string]string{"id": "2"})
	h.UpdateBudget(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d, body: %s", rr.Code, rr.Body.String())
	}
	if got := errCode(t, rr.Body.Bytes()); got != "BUDGET_EXISTS" {
		t.Errorf("expected BUDGET_EXISTS, got %s", got)
	}
}

func TestListBudgets_MonthFilter(t *testing.T) {
	h := NewBudgetHandler(newFakeBudgetStore())

	postJSON(t, h.CreateBudget, "/api/budgets", `{"categoryId":3,"month":"2026-03","limitCents":100}`)
	postJSON(t, h.CreateBudget, "/api/budgets", `{"categoryId":3,"month":"2026-04","limitCents":100}`)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/budgets?month=2026-04", nil)
	h.ListBudgets(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var out struct {
		Budgets []BudgetResponse `json:"budgets"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 || out.Budgets[0].Month != "2026-04" {
		t.Fatalf("unexpected listing: %+v", out)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/budgets?month=bogus", nil)
	h.ListBudgets(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed month filter, got %d", rr.Code)
	}
}

func TestGetBudgetProgress(t *testing.T) {
	fs := newFakeBudgetStore()
	fs.progress = store.BudgetProgress{
		BudgetID:          1,
		CategoryID:        3,
		CategoryName:      "Groceries",
		Month:             "2026-03",
		LimitCents:        50000,
		SpentCents:        42500,
		Ratio:             0.85,
		AlertThreshold:    0.8,
		ThresholdExceeded: true,
	}
	h := NewBudgetHandler(fs)

	postJSON(t, h.CreateBudget, "/api/budgets", `{"categoryId":3,"month":"2026-03","limitCents":50000}`)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/budgets/1/progress", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	h.GetBudgetProgress(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var out struct {
		BudgetID          int64   `json:"budgetId"`
		SpentCents        int64   `json:"spentCents"`
		Ratio             float64 `json:"ratio"`
		ThresholdExceeded bool    `json:"thresholdExceeded"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.BudgetID != 1 || out.SpentCents != 42500 || !out.ThresholdExceeded {
		t.Fatalf("unexpected progress: %+v", out)
	}

	// Unknown budget is a 404.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/budgets/99/progress", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "99"})
	h.GetBudgetProgress(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDeleteBudget(t *testing.T) {
	fs := newFakeBudgetStore()
	h := NewBudgetHandler(fs)

	postJSON(t, h.CreateBudget, "/api/budgets", `{"categoryId":3,"month":"2026-03","limitCents":100}`)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/budgets/1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	h.DeleteBudget(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if len(fs.budgets) != 0 {
		t.Fatalf("expected empty store, got %d budgets", len(fs.budgets))
	}
}
