package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cimillas/item-reservations/internal/domain"
)

// ReservationService is the engine surface used by the reservation endpoints.
type ReservationService interface {
	Reserve(ctx context.Context, itemID, userID string) (domain.Item, error)
	Release(ctx context.Context, itemID, userID string) (domain.Item, error)
	JoinQueue(ctx context.Context, itemID, userID string) (domain.WaitingEntry, error)
	LeaveQueue(ctx context.Context, itemID, userID string) error
	ListQueue(ctx context.Context, itemID string) ([]domain.WaitingEntry, error)
	QueuePosition(ctx context.Context, itemID, userID string) (int, error)
	ListHolds(ctx context.Context, userID string) ([]domain.Item, error)
}

// HandleReserve makes the caller the holder of a free item.
func HandleReserve(svc ReservationService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identityFrom(r.Context())
		item, err := svc.Reserve(r.Context(), r.PathValue("id"), id.UserID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toItemResponse(item))
	}
}

// HandleRelease returns an item the caller holds.
func HandleRelease(svc ReservationService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identityFrom(r.Context())
		item, err := svc.Release(r.Context(), r.PathValue("id"), id.UserID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toItemResponse(item))
	}
}

func HandleListMyHolds(svc ReservationService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identityFrom(r.Context())
		items, err := svc.ListHolds(r.Context(), id.UserID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := make([]itemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, toItemResponse(item))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type waitingEntryResponse struct {
	ItemID   string    `json:"item_id"`
	UserID   string    `json:"user_id"`
	Position int       `json:"position"`
	JoinedAt time.Time `json:"joined_at"`
}

func HandleJoinQueue(svc ReservationService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identityFrom(r.Context())
		itemID := r.PathValue("id")
		entry, err := svc.JoinQueue(r.Context(), itemID, id.UserID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		// The position is informational; a concurrent promotion may already have
		// removed the entry.
		position, err := svc.QueuePosition(r.Context(), itemID, id.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotQueued) {
			writeServiceError(w, logger, err)
			return
		}
		resp := waitingEntryResponse{
			ItemID:   entry.ItemID,
			UserID:   entry.UserID,
			Position: position,
			JoinedAt: entry.JoinedAt,
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func HandleLeaveQueue(svc ReservationService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identityFrom(r.Context())
		if err := svc.LeaveQueue(r.Context(), r.PathValue("id"), id.UserID); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleListQueue lists waiting users in promotion order.
func HandleListQueue(svc ReservationService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.ListQueue(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := make([]waitingEntryResponse, 0, len(entries))
		for i, e := range entries {
			resp = append(resp, waitingEntryResponse{
				ItemID:   e.ItemID,
				UserID:   e.UserID,
				Position: i + 1,
				JoinedAt: e.JoinedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
