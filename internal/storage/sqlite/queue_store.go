package sqlite

import (
	"context"
	"fmt"

	"github.com/cimillas/item-reservations/internal/domain"
)

type QueueStore struct {
	db *DB
}

func NewQueueStore(db *DB) *QueueStore {
	return &QueueStore{db: db}
}

func (s *QueueStore) Enqueue(ctx context.Context, entry domain.WaitingEntry) (domain.WaitingEntry, error) {
	res, err := s.db.exec(ctx,
		`INSERT INTO waiting_entries (item_id, user_id, joined_at) VALUES (?, ?, ?)`,
		entry.ItemID, entry.UserID, toNanos(entry.JoinedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WaitingEntry{}, domain.ErrAlreadyQueued
		}
		return domain.WaitingEntry{}, fmt.Errorf("enqueue: %w", err)
	}
	entry.Seq, err = res.LastInsertId()
	if err != nil {
		return domain.WaitingEntry{}, fmt.Errorf("enqueue: %w", err)
	}
	return entry, nil
}

func (s *QueueStore) Remove(ctx context.Context, itemID, userID string) (bool, error) {
	res, err := s.db.exec(ctx, `DELETE FROM waiting_entries WHERE item_id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return false, fmt.Errorf("remove waiting entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove waiting entry: %w", err)
	}
	return n > 0, nil
}

func (s *QueueStore) RemoveByItem(ctx context.Context, itemID string) (int, error) {
	res, err := s.db.exec(ctx, `DELETE FROM waiting_entries WHERE item_id = ?`, itemID)
	if err != nil {
		return 0, fmt.Errorf("remove waiting entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove waiting entries: %w", err)
	}
	return int(n), nil
}

func (s *QueueStore) ListByItem(ctx context.Context, itemID string) ([]domain.WaitingEntry, error) {
	const query = `
SELECT item_id, user_id, joined_at, seq
FROM waiting_entries
WHERE item_id = ?
ORDER BY joined_at, seq`

	rows, err := s.db.query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.WaitingEntry
	for rows.Next() {
		var (
			e        domain.WaitingEntry
			joinedAt int64
		)
		if err := rows.Scan(&e.ItemID, &e.UserID, &joinedAt, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan waiting entry: %w", err)
		}
		e.JoinedAt = fromNanos(joinedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}
	return entries, nil
}

func (s *QueueStore) QueueLengths(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.query(ctx, `SELECT item_id, COUNT(*) FROM waiting_entries GROUP BY item_id`)
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
