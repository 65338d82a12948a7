package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/item-reservations/internal/app"
	"github.com/cimillas/item-reservations/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func freeItem() domain.Item {
	return domain.Item{
		ID:          "item-1",
		Name:        "Camera",
		Description: "Mirrorless body",
		Price:       decimal.RequireFromString("349.90"),
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
}

func heldItem(holderID string) domain.Item {
	item := freeItem()
	return item.WithHold(domain.NewHold(holderID, testNow, 2*time.Minute))
}

func TestHandleCreateItem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"name":"Camera","description":"Mirrorless body","price":"349.90"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"status":"FREE"`,
		},
		{
			name:           "numeric price",
			body:           `{"name":"Camera","price":349.9}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid json",
			body:           `{"name":`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidRequestBody,
		},
		{
			name:           "unknown field",
			body:           `{"name":"Camera","price":"1","colour":"red"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing price",
			body:           `{"name":"Camera"}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeMissingRequiredField,
		},
		{
			name:           "negative price",
			body:           `{"name":"Camera","price":"-1"}`,
			serviceErr:     domain.ErrInvalidPrice,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidPrice,
		},
		{
			name:           "blank name",
			body:           `{"name":"   ","price":"1"}`,
			serviceErr:     domain.ErrItemNameRequired,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeItemNameRequired,
		},
		{
			name:           "internal error",
			body:           `{"name":"Camera","price":"1"}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCatalog{item: freeItem(), err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/items", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleCreateItem(svc, discardLogger()).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleCreateItem_PassesDecimalPrice(t *testing.T) {
	t.Parallel()

	svc := &stubCatalog{item: freeItem()}
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"name":"Camera","price":"0.10"}`))
	rec := httptest.NewRecorder()

	HandleCreateItem(svc, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if !svc.created.Price.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("expected price 0.1, got %s", svc.created.Price)
	}
}

func TestHandleListItems_IncludesQueueLength(t *testing.T) {
	t.Parallel()

	svc := &stubCatalog{items: []app.CatalogItem{
		{Item: freeItem(), QueueLength: 0},
		{Item: heldItem("user-1"), QueueLength: 2},
	}}
	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	rec := httptest.NewRecorder()

	HandleListItems(svc, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp []itemResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp))
	}
	if resp[0].Status != statusFree || resp[0].HolderID != nil {
		t.Fatalf("expected first item free, got %+v", resp[0])
	}
	if resp[1].Status != statusHeld || *resp[1].HolderID != "user-1" {
		t.Fatalf("expected second item held by user-1, got %+v", resp[1])
	}
	if resp[1].QueueLength == nil || *resp[1].QueueLength != 2 {
		t.Fatalf("expected queue length 2, got %v", resp[1].QueueLength)
	}
	if !resp[1].HoldDeadline.Equal(testNow.Add(2 * time.Minute)) {
		t.Fatalf("expected deadline %v, got %v", testNow.Add(2*time.Minute), resp[1].HoldDeadline)
	}
}

func TestHandleListItems_EmptyIsArray(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	rec := httptest.NewRecorder()

	HandleListItems(&stubCatalog{}, discardLogger()).ServeHTTP(rec, req)

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected empty array, got %q", got)
	}
}

func TestHandleUpdateItem_Partial(t *testing.T) {
	t.Parallel()

	svc := &stubCatalog{item: freeItem()}
	mux := http.NewServeMux()
	mux.Handle("PATCH /items/{id}", HandleUpdateItem(svc, discardLogger()))

	req := httptest.NewRequest(http.MethodPatch, "/items/item-1", strings.NewReader(`{"description":"Used"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.gotID != "item-1" {
		t.Fatalf("expected id item-1, got %q", svc.gotID)
	}
	if svc.updated.Name != nil || svc.updated.Price != nil {
		t.Fatalf("expected only description to be set, got %+v", svc.updated)
	}
	if svc.updated.Description == nil || *svc.updated.Description != "Used" {
		t.Fatalf("expected description Used, got %v", svc.updated.Description)
	}
}

func TestHandleDeleteItem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
	}{
		{"deleted", nil, http.StatusNoContent},
		{"held", domain.ErrItemHeld, http.StatusConflict},
		{"missing", domain.ErrItemNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCatalog{err: tt.serviceErr}
			mux := http.NewServeMux()
			mux.Handle("DELETE /items/{id}", HandleDeleteItem(svc, discardLogger()))

			req := httptest.NewRequest(http.MethodDelete, "/items/item-9", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if svc.gotID != "item-9" {
				t.Fatalf("expected id item-9, got %q", svc.gotID)
			}
		})
	}
}
