package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/item-reservations/internal/domain"
)

type QueueStore struct {
	db
}

func NewQueueStore(pool *pgxpool.Pool) *QueueStore {
	return &QueueStore{db{pool: pool}}
}

func (s *QueueStore) Enqueue(ctx context.Context, entry domain.WaitingEntry) (domain.WaitingEntry, error) {
	const stmt = `
INSERT INTO waiting_entries (item_id, user_id, joined_at)
VALUES ($1, $2, $3)
RETURNING seq`

	if err := s.queryRow(ctx, stmt, entry.ItemID, entry.UserID, entry.JoinedAt).Scan(&entry.Seq); err != nil {
		if isUniqueViolation(err) {
			return domain.WaitingEntry{}, domain.ErrAlreadyQueued
		}
		if isInvalidUUID(err) {
			return domain.WaitingEntry{}, domain.ErrInvalidID
		}
		return domain.WaitingEntry{}, fmt.Errorf("enqueue: %w", err)
	}
	return entry, nil
}

func (s *QueueStore) Remove(ctx context.Context, itemID, userID string) (bool, error) {
	tag, err := s.exec(ctx, `DELETE FROM waiting_entries WHERE item_id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("remove waiting entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *QueueStore) RemoveByItem(ctx context.Context, itemID string) (int, error) {
	tag, err := s.exec(ctx, `DELETE FROM waiting_entries WHERE item_id = $1`, itemID)
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("remove waiting entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *QueueStore) ListByItem(ctx context.Context, itemID string) ([]domain.WaitingEntry, error) {
	const query = `
SELECT item_id::text, user_id::text, joined_at, seq
FROM waiting_entries
WHERE item_id = $1
ORDER BY joined_at, seq`

	rows, err := s.query(ctx, query, itemID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.WaitingEntry, error) {
		var e domain.WaitingEntry
		err := row.Scan(&e.ItemID, &e.UserID, &e.JoinedAt, &e.Seq)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}
	return entries, nil
}

func (s *QueueStore) QueueLengths(ctx context.Context) (map[string]int, error) {
	rows, err := s.query(ctx, `SELECT item_id::text, COUNT(*) FROM waiting_entries GROUP BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("queue lengths: %w", err)
	}
	defer rows.Close()

	lengths := make(map[string]int)
	for rows.Next() {
		var (
			itemID string
			n      int
		)
		if err := rows.Scan(&itemID, &n); err != nil {
			return nil, fmt.Errorf("scan queue length: %w", err)
		}
		lengths[itemID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue lengths: %w", err)
	}
	return lengths, nil
}
