package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cimillas/item-reservations/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidID            = "invalid_id"
	codeInvalidPrice         = "invalid_price"
	codeItemNameRequired     = "item_name_required"
	codeItemNotFound         = "item_not_found"
	codeUserNotFound         = "user_not_found"
	codeItemAlreadyReserved  = "item_already_reserved"
	codeItemReserved         = "item_reserved"
	codeNotHolder            = "not_holder"
	codeHoldLimitReached     = "hold_limit_reached"
	codeAlreadyQueued        = "already_queued"
	codeAlreadyHolder        = "already_holder"
	codeItemAvailable        = "item_available"
	codeNotQueued            = "not_queued"
	codeEmailTaken           = "email_taken"
	codeInvalidName          = "invalid_name"
	codeInvalidEmail         = "invalid_email"
	codePasswordTooShort     = "password_too_short"
	codeInvalidCredentials   = "invalid_credentials"
	codeUnauthenticated      = "unauthenticated"
	codeForbidden            = "forbidden"
	codeRateLimited          = "rate_limited"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrInvalidID, codeInvalidID},
	{domain.ErrItemNotFound, codeItemNotFound},
	{domain.ErrUserNotFound, codeUserNotFound},
	{domain.ErrNotQueued, codeNotQueued},
	{domain.ErrItemAlreadyHeld, codeItemAlreadyReserved},
	{domain.ErrItemHeld, codeItemReserved},
	{domain.ErrEmailTaken, codeEmailTaken},
	{domain.ErrNotHolder, codeNotHolder},
	{domain.ErrForbiddenRole, codeForbidden},
	{domain.ErrHoldLimitReached, codeHoldLimitReached},
	{domain.ErrAlreadyQueued, codeAlreadyQueued},
	{domain.ErrAlreadyHolder, codeAlreadyHolder},
	{domain.ErrItemAvailable, codeItemAvailable},
	{domain.ErrItemNameRequired, codeItemNameRequired},
	{domain.ErrInvalidPrice, codeInvalidPrice},
	{domain.ErrInvalidName, codeInvalidName},
	{domain.ErrInvalidEmail, codeInvalidEmail},
	{domain.ErrPasswordTooShort, codePasswordTooShort},
	{domain.ErrInvalidCredentials, codeInvalidCredentials},
	{domain.ErrUnauthenticated, codeUnauthenticated},
}

func statusForKind(k domain.Kind) int {
	switch k {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindLimitExceeded, domain.KindUnprocessable:
		return http.StatusUnprocessableEntity
	case domain.KindInvalid:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError translates a service error into its JSON response.
// Errors outside the domain taxonomy are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			writeError(w, statusForKind(domain.KindOf(err)), ec.code, ec.err.Error())
			return
		}
	}
	if logger != nil {
		logger.Error("unhandled service error", "err", err)
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
