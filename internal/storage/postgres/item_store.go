package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cimillas/item-reservations/internal/domain"
)

const itemColumns = `id::text, name, description, price::text, holder_id::text, hold_started_at, hold_deadline, created_at, updated_at`

type ItemStore struct {
	db
}

func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{db{pool: pool}}
}

func (s *ItemStore) CreateItem(ctx context.Context, item domain.Item) error {
	const stmt = `
INSERT INTO items (id, name, description, price, created_at, updated_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6)`

	_, err := s.exec(ctx, stmt, item.ID, item.Name, item.Description, item.Price.String(), item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (s *ItemStore) GetItem(ctx context.Context, id string) (domain.Item, error) {
	return s.getItem(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
}

func (s *ItemStore) GetItemForUpdate(ctx context.Context, id string) (domain.Item, error) {
	return s.getItem(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id)
}

func (s *ItemStore) getItem(ctx context.Context, query, id string) (domain.Item, error) {
	item, err := scanItem(s.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Item{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY name, id`)
}

func (s *ItemStore) ListItemsHeldBy(ctx context.Context, userID string) ([]domain.Item, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM items WHERE holder_id = $1 ORDER BY hold_deadline, id`, userID)
}

func (s *ItemStore) listItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *ItemStore) UpdateItemDetails(ctx context.Context, item domain.Item) error {
	const stmt = `
UPDATE items
SET name = $2, description = $3, price = $4::numeric, updated_at = $5
WHERE id = $1`

	tag, err := s.exec(ctx, stmt, item.ID, item.Name, item.Description, item.Price.String(), item.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (s *ItemStore) DeleteItem(ctx context.Context, id string) error {
	tag, err := s.exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// LockHolder takes a transaction-scoped advisory lock keyed by the user, so
// concurrent reservations by one user count holds one at a time.
func (s *ItemStore) LockHolder(ctx context.Context, userID string) error {
	if _, err := s.exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
		return fmt.Errorf("lock holder: %w", err)
	}
	return nil
}

func (s *ItemStore) CountHeldBy(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM items WHERE holder_id = $1`, userID).Scan(&n); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count held by: %w", err)
	}
	return n, nil
}

func (s *ItemStore) CountHeld(ctx context.Context) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM items WHERE holder_id IS NOT NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count held: %w", err)
	}
	return n, nil
}

func (s *ItemStore) ListExpiredHolds(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
SELECT id::text FROM items
WHERE holder_id IS NOT NULL AND hold_deadline <= $1
ORDER BY hold_deadline, id`

	rows, err := s.query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	return ids, nil
}

func (s *ItemStore) SetHold(ctx context.Context, itemID string, hold domain.Hold, now time.Time) error {
	const stmt = `
UPDATE items
SET holder_id = $2, hold_started_at = $3, hold_deadline = $4, updated_at = $5
WHERE id = $1 AND holder_id IS NULL`

	tag, err := s.exec(ctx, stmt, itemID, hold.HolderID, hold.StartedAt, hold.Deadline, now)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOr(ctx, itemID, domain.ErrItemAlreadyHeld)
	}
	return nil
}

func (s *ItemStore) ClearHold(ctx context.Context, itemID, holderID string, now time.Time) error {
	const stmt = `
UPDATE items
SET holder_id = NULL, hold_started_at = NULL, hold_deadline = NULL, updated_at = $3
WHERE id = $1 AND holder_id = $2`

	tag, err := s.exec(ctx, stmt, itemID, holderID, now)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("clear hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOr(ctx, itemID, domain.ErrNotHolder)
	}
	return nil
}

// missingOr tells a guarded update that matched nothing because the item is
// gone apart from one that failed its guard.
func (s *ItemStore) missingOr(ctx context.Context, itemID string, guardErr error) error {
	var exists bool
	if err := s.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, itemID).Scan(&exists); err != nil {
		return fmt.Errorf("check item: %w", err)
	}
	if !exists {
		return domain.ErrItemNotFound
	}
	return guardErr
}

func scanItem(row pgx.Row) (domain.Item, error) {
	var (
		item  domain.Item
		price string
	)
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&price,
		&item.HolderID,
		&item.HoldStartedAt,
		&item.HoldDeadline,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return domain.Item{}, err
	}
	item.Price, err = decimal.NewFromString(price)
	if err != nil {
		return domain.Item{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	return item, nil
}
