package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cimillas/item-reservations/internal/domain"
)

func TestWriteServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"not found", domain.ErrItemNotFound, http.StatusNotFound, codeItemNotFound},
		{"not queued", domain.ErrNotQueued, http.StatusNotFound, codeNotQueued},
		{"already reserved", domain.ErrItemAlreadyHeld, http.StatusConflict, codeItemAlreadyReserved},
		{"delete held", domain.ErrItemHeld, http.StatusConflict, codeItemReserved},
		{"not holder", domain.ErrNotHolder, http.StatusForbidden, codeNotHolder},
		{"limit", domain.ErrHoldLimitReached, http.StatusUnprocessableEntity, codeHoldLimitReached},
		{"already queued", domain.ErrAlreadyQueued, http.StatusUnprocessableEntity, codeAlreadyQueued},
		{"item available", domain.ErrItemAvailable, http.StatusUnprocessableEntity, codeItemAvailable},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
		{"bad credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, codeInvalidCredentials},
		{"wrapped", fmt.Errorf("reserve: %w", domain.ErrItemAlreadyHeld), http.StatusConflict, codeItemAlreadyReserved},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, codeInternalError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			writeServiceError(rec, discardLogger(), tt.err)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Code != tt.expectedCode {
				t.Fatalf("expected code %s, got %s", tt.expectedCode, resp.Code)
			}
		})
	}
}

func TestErrorCodesCoverEveryKind(t *testing.T) {
	t.Parallel()

	for _, ec := range errorCodes {
		if domain.KindOf(ec.err) == domain.KindInternal {
			t.Fatalf("%v has a code but no kind", ec.err)
		}
	}
}
