package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/item-reservations/internal/domain"
)

const itemColumns = `id, name, description, price, holder_id, hold_started_at, hold_deadline, created_at, updated_at`

type ItemStore struct {
	db *DB
}

func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

func (s *ItemStore) CreateItem(ctx context.Context, item domain.Item) error {
	const stmt = `
INSERT INTO items (id, name, description, price, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.exec(ctx, stmt,
		item.ID, item.Name, item.Description, item.Price.String(),
		toNanos(item.CreatedAt), toNanos(item.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (s *ItemStore) GetItem(ctx context.Context, id string) (domain.Item, error) {
	item, err := scanItem(s.db.queryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetItemForUpdate is GetItem: an IMMEDIATE transaction already holds the
// database write lock, which covers every row.
func (s *ItemStore) GetItemForUpdate(ctx context.Context, id string) (domain.Item, error) {
	return s.GetItem(ctx, id)
}

func (s *ItemStore) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY name, id`)
}

func (s *ItemStore) ListItemsHeldBy(ctx context.Context, userID string) ([]domain.Item, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM items WHERE holder_id = ? ORDER BY hold_deadline, id`, userID)
}

func (s *ItemStore) listItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := s.db.query(ctx, query, args...)
	if err != nil {
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
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *ItemStore) UpdateItemDetails(ctx context.Context, item domain.Item) error {
	const stmt = `UPDATE items SET name = ?, description = ?, price = ?, updated_at = ? WHERE id = ?`

	res, err := s.db.exec(ctx, stmt, item.Name, item.Description, item.Price.String(), toNanos(item.UpdatedAt), item.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return requireRow(res, domain.ErrItemNotFound)
}

func (s *ItemStore) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.exec(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return requireRow(res, domain.ErrItemNotFound)
}

// LockHolder is a no-op: writers are already serialised by the database lock.
func (s *ItemStore) LockHolder(ctx context.Context, userID string) error {
	return nil
}

func (s *ItemStore) CountHeldBy(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.queryRow(ctx, `SELECT COUNT(*) FROM items WHERE holder_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count held by: %w", err)
	}
	return n, nil
}

func (s *ItemStore) CountHeld(ctx context.Context) (int, error) {
	var n int
	if err := s.db.queryRow(ctx, `SELECT COUNT(*) FROM items WHERE holder_id IS NOT NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count held: %w", err)
	}
	return n, nil
}

func (s *ItemStore) ListExpiredHolds(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
SELECT id FROM items
WHERE holder_id IS NOT NULL AND hold_deadline <= ?
ORDER BY hold_deadline, id`

	rows, err := s.db.query(ctx, query, toNanos(now))
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired hold: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	return ids, nil
}

func (s *ItemStore) SetHold(ctx context.Context, itemID string, hold domain.Hold, now time.Time) error {
	const stmt = `
UPDATE items
SET holder_id = ?, hold_started_at = ?, hold_deadline = ?, updated_at = ?
WHERE id = ? AND holder_id IS NULL`

	res, err := s.db.exec(ctx, stmt, hold.HolderID, toNanos(hold.StartedAt), toNanos(hold.Deadline), toNanos(now), itemID)
	if err != nil {
		return fmt.Errorf("set hold: %w", err)
	}
	if err := requireRow(res, domain.ErrItemAlreadyHeld); err != nil {
		return s.missingOr(ctx, itemID, err)
	}
	return nil
}

func (s *ItemStore) ClearHold(ctx context.Context, itemID, holderID string, now time.Time) error {
	const stmt = `
UPDATE items
SET holder_id = NULL, hold_started_at = NULL, hold_deadline = NULL, updated_at = ?
WHERE id = ? AND holder_id = ?`

	res, err := s.db.exec(ctx, stmt, toNanos(now), itemID, holderID)
	if err != nil {
		return fmt.Errorf("clear hold: %w", err)
	}
	if err := requireRow(res, domain.ErrNotHolder); err != nil {
		return s.missingOr(ctx, itemID, err)
	}
	return nil
}

func (s *ItemStore) missingOr(ctx context.Context, itemID string, guardErr error) error {
	var exists bool
	if err := s.db.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = ?)`, itemID).Scan(&exists); err != nil {
		return fmt.Errorf("check item: %w", err)
	}
	if !exists {
		return domain.ErrItemNotFound
	}
	return guardErr
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (domain.Item, error) {
	var (
		item      domain.Item
		price     string
		holderID  sql.NullString
		started   sql.NullInt64
		deadline  sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&price,
		&holderID,
		&started,
		&deadline,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Item{}, err
	}
	item.Price, err = decimal.NewFromString(price)
	if err != nil {
		return domain.Item{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	item.HolderID = nullString(holderID)
	item.HoldStartedAt = nullTime(started)
	item.HoldDeadline = nullTime(deadline)
	item.CreatedAt = fromNanos(createdAt)
	item.UpdatedAt = fromNanos(updatedAt)
	return item, nil
}
