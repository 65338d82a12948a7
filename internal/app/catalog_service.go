package app

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cimillas/item-reservations/internal/clock"
	"github.com/cimillas/item-reservations/internal/domain"
)

// CatalogItem is an item together with the length of its waiting queue.
type CatalogItem struct {
	domain.Item
	QueueLength int
}

type CatalogService struct {
	tx    Transactor
	items ItemStore
	queue QueueStore
	clock clock.Clock
}

func NewCatalogService(tx Transactor, items ItemStore, queue QueueStore, clk clock.Clock) *CatalogService {
	return &CatalogService{
		tx:    tx,
		items: items,
		queue: queue,
		clock: clk,
	}
}

type CreateItemInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
}

func (s *CatalogService) CreateItem(ctx context.Context, in CreateItemInput) (domain.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Item{}, domain.ErrItemNameRequired
	}
	if err := domain.ValidatePrice(in.Price); err != nil {
		return domain.Item{}, err
	}

	now := s.clock.Now()
	item := domain.Item{
		ID:          newID(),
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (s *CatalogService) GetItem(ctx context.Context, id string) (CatalogItem, error) {
	if err := checkIDs(id); err != nil {
		return CatalogItem{}, err
	}
	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return CatalogItem{}, err
	}
	waiting, err := s.queue.ListByItem(ctx, id)
	if err != nil {
		return CatalogItem{}, err
	}
	return CatalogItem{Item: item, QueueLength: len(waiting)}, nil
}

// ListItems returns every item ordered by name.
func (s *CatalogService) ListItems(ctx context.Context) ([]CatalogItem, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	lengths, err := s.queue.QueueLengths(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CatalogItem, 0, len(items))
	for _, item := range items {
		out = append(out, CatalogItem{Item: item, QueueLength: lengths[item.ID]})
	}
	return out, nil
}

// UpdateItemInput carries a partial update; nil fields are left unchanged.
type UpdateItemInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
}

// UpdateItem changes descriptive fields only. The hold triple is owned by the
// reservation engine and is never touched here.
func (s *CatalogService) UpdateItem(ctx context.Context, id string, in UpdateItemInput) (domain.Item, error) {
	if err := checkIDs(id); err != nil {
		return domain.Item{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return domain.Item{}, domain.ErrItemNameRequired
	}
	if in.Price != nil {
		if err := domain.ValidatePrice(*in.Price); err != nil {
			return domain.Item{}, err
		}
	}

	var result domain.Item
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.items.GetItemForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			item.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			item.Description = *in.Description
		}
		if in.Price != nil {
			item.Price = *in.Price
		}
		item.UpdatedAt = s.clock.Now()

		if err := s.items.UpdateItemDetails(txCtx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return result, nil
}

// DeleteItem removes a free item and its waiting queue. History rows keep
// their item id and resolve to an unknown reference afterwards.
func (s *CatalogService) DeleteItem(ctx context.Context, id string) error {
	if err := checkIDs(id); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.items.GetItemForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if item.Held() {
			return domain.ErrItemHeld
		}
		if _, err := s.queue.RemoveByItem(txCtx, id); err != nil {
			return err
		}
		return s.items.DeleteItem(txCtx, id)
	})
}
