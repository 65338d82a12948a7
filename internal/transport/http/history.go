package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cimillas/item-reservations/internal/domain"
)

type HistoryLister interface {
	ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error)
}

type refResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Known bool   `json:"known"`
}

type historyResponse struct {
	ID     string      `json:"id"`
	Action string      `json:"action"`
	At     time.Time   `json:"at"`
	Item   refResponse `json:"item"`
	User   refResponse `json:"user"`
}

// HandleListHistory returns the audit log newest first, optionally filtered
// by item_id and user_id query parameters.
func HandleListHistory(svc HistoryLister, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		entries, err := svc.ListHistory(r.Context(), domain.HistoryFilter{
			ItemID: q.Get("item_id"),
			UserID: q.Get("user_id"),
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		resp := make([]historyResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, historyResponse{
				ID:     e.Record.ID,
				Action: string(e.Record.Action),
				At:     e.Record.At,
				Item:   refResponse(e.Item),
				User:   refResponse(e.User),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
