package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/item-reservations/internal/app"
	"github.com/cimillas/item-reservations/internal/domain"
)

// CatalogService is the catalog surface used by the item endpoints.
type CatalogService interface {
	CreateItem(ctx context.Context, in app.CreateItemInput) (domain.Item, error)
	GetItem(ctx context.Context, id string) (app.CatalogItem, error)
	ListItems(ctx context.Context) ([]app.CatalogItem, error)
	UpdateItem(ctx context.Context, id string, in app.UpdateItemInput) (domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

const (
	statusFree = "FREE"
	statusHeld = "HELD"
)

type itemResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Status        string          `json:"status"`
	HolderID      *string         `json:"holder_id"`
	HoldStartedAt *time.Time      `json:"hold_started_at"`
	HoldDeadline  *time.Time      `json:"hold_deadline"`
	QueueLength   *int            `json:"queue_length,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toItemResponse(item domain.Item) itemResponse {
	status := statusFree
	if item.Held() {
		status = statusHeld
	}
	return itemResponse{
		ID:            item.ID,
		Name:          item.Name,
		Description:   item.Description,
		Price:         item.Price,
		Status:        status,
		HolderID:      item.HolderID,
		HoldStartedAt: item.HoldStartedAt,
		HoldDeadline:  item.HoldDeadline,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

func toCatalogResponse(item app.CatalogItem) itemResponse {
	resp := toItemResponse(item.Item)
	n := item.QueueLength
	resp.QueueLength = &n
	return resp
}

// HandleListItems returns every catalog item with its queue length.
func HandleListItems(svc CatalogService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListItems(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := make([]itemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, toCatalogResponse(item))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleGetItem(svc CatalogService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := svc.GetItem(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toCatalogResponse(item))
	}
}

type createItemRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

func HandleCreateItem(svc CatalogService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createItemRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Name == "" || req.Price == nil {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "name and price are required")
			return
		}

		item, err := svc.CreateItem(r.Context(), app.CreateItemInput{
			Name:        req.Name,
			Description: req.Description,
			Price:       *req.Price,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toItemResponse(item))
	}
}

type updateItemRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

func HandleUpdateItem(svc CatalogService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateItemRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		item, err := svc.UpdateItem(r.Context(), r.PathValue("id"), app.UpdateItemInput{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toItemResponse(item))
	}
}

func HandleDeleteItem(svc CatalogService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteItem(r.Context(), r.PathValue("id")); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
