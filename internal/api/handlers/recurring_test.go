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

type fakeRecurringStore struct {
	rules  map[int64]store.RecurringTransaction
	nextID int64
}

func newFakeRecurringStore() *fakeRecurringStore {
	return &fakeRecurringStore{rules: make(map[int64]store.RecurringTransaction), nextID: 1}
}

func (f *fakeRecurringStore) ListRecurring(ctx context.Context) ([]store.RecurringTransaction, error) {
	out := make([]store.RecurringTransaction, 0, len(f.rules))
	for _, r := range f.rules {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRecurringStore) CreateRecurring(ctx context.Context, p store.RecurringParams) (store.RecurringTransaction, error) {
	r := store.RecurringTransaction{
		ID:          f.nextID,
		Description: p.Description,
		Type:        p.Type,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		CategoryID:  p.CategoryID,
		Schedule:    p.Schedule,
		NextRunAt:   p.NextRunAt,
		Active:      true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.rules[r.ID] = r
	f.nextID++
	return r, nil
}

func (f *fakeRecurringStore) SetRecurringActive(ctx context.Context, id int64, active bool) error {
	r, ok := f.rules[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Active = active
	f.rules[id] = r
	return nil
}

func TestCreateRecurring(t *testing.T) {
	fs := newFakeRecurringStore()
	h := NewRecurringHandler(fs)

	rr := postJSON(t, h.CreateRecurring, "/api/recurring",
		`{"description":"Rent","type":"expense","amountCents":120000,"schedule":"@monthly"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body: %s", rr.Code, rr.Body.String())
	}

	var out RecurringResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Description != "Rent" || out.Schedule != "@monthly" || !out.Active {
		t.Fatalf("unexpected response: %+v", out)
	}
	if !out.NextRunAt.After(time.Now()) {
		t.Errorf("first run should be in the future, got %v", out.NextRunAt)
	}
}

func TestCreateRecurring_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"bad schedule", `{"description":"Rent","type":"expense","amountCents":100,"schedule":"monthly"}`, "VALIDATION_INVALID_VALUE"},
		{"empty schedule", `{"description":"Rent","type":"expense","amountCents":100}`, "VALIDATION_INVALID_VALUE"},
		{"missing description", `{"type":"expense","amountCents":100,"schedule":"@daily"}`, "VALIDATION_MISSING_FIELD"},
		{"bad type", `{"description":"Rent","type":"transfer","amountCents":100,"schedule":"@daily"}`, "TXN_INVALID_TYPE"},
		{"zero amount", `{"description":"Rent","type":"expense","amountCents":0,"schedule":"@daily"}`, "TXN_INVALID_AMOUNT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRecurringHandler(newFakeRecurringStore())
			rr := postJSON(t, h.CreateRecurring, "/api/recurring", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d, body: %s", rr.Code, rr.Body.String())
			}
			if got := errCode(t, rr.Body.Bytes()); got != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, got)
			}
		})
	}
}

func TestListRecurring(t *testing.T) {
	fs := newFakeRecurringStore()
	h := NewRecurringHandler(fs)

	postJSON(t, h.CreateRecurring, "/api/recurring",
		`{"description":"Rent","type":"expense","amountCents":120000,"schedule":"@monthly"}`)
	postJSON(t, h.CreateRecurring, "/api/recurring",
		`{"description":"Salary","type":"income","amount":"3500.00","schedule":"@monthly"}`)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/recurring", nil)
	h.ListRecurring(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var out struct {
		Recurring []RecurringResponse `json:"recurring"`
		Count     int                 `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("expected 2 rules, got %d", out.Count)
	}
}

func TestSetRecurringActive(t *testing.T) {
	fs := newFakeRecurringStore()
	h := NewRecurringHandler(fs)

	postJSON(t, h.CreateRecurring, "/api/recurring",
		`{"description":"Rent","type":"expense","amountCents":120000,"schedule":"@monthly"}`)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/recurring/1/active",
		bytes.NewBufferString(`{"active":false}`))
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	h.SetRecurringActive(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", rr.Code, rr.Body.String())
	}
	if fs.rules[1].Active {
		t.Fatal("rule should be paused")
	}

	// Missing body field is a 400, unknown id a 404.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/recurring/1/active", bytes.NewBufferString(`{}`))
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	h.SetRecurringActive(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/recurring/9/active", bytes.NewBufferString(`{"active":true}`))
	req = mux.SetURLVars(req, map[string]string{"id": "9"})
	h.SetRecurringActive(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
