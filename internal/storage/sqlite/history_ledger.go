package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cimillas/item-reservations/internal/domain"
)

type HistoryLedger struct {
	db *DB
}

func NewHistoryLedger(db *DB) *HistoryLedger {
	return &HistoryLedger{db: db}
}

func (l *HistoryLedger) Append(ctx context.Context, rec domain.HistoryRecord) (domain.HistoryRecord, error) {
	if !rec.Action.Valid() {
		return domain.HistoryRecord{}, fmt.Errorf("append history: unknown action %q", rec.Action)
	}

	res, err := l.db.exec(ctx,
		`INSERT INTO history_records (id, action, item_id, user_id, at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Action), rec.ItemID, rec.UserID, toNanos(rec.At),
	)
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("append history: %w", err)
	}
	rec.Seq, err = res.LastInsertId()
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("append history: %w", err)
	}
	return rec, nil
}

func (l *HistoryLedger) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.ItemID != "" {
		where = append(where, "h.item_id = ?")
		args = append(args, filter.ItemID)
	}
	if filter.UserID != "" {
		where = append(where, "h.user_id = ?")
		args = append(args, filter.UserID)
	}

	query := `
SELECT h.id, h.seq, h.action, h.item_id, h.user_id, h.at, i.name, u.name
FROM history_records h
LEFT JOIN items i ON i.id = h.item_id
LEFT JOIN users u ON u.id = h.user_id`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY h.at DESC, h.seq DESC"

	rows, err := l.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			rec      domain.HistoryRecord
			action   string
			at       int64
			itemName sql.NullString
			userName sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Seq, &action, &rec.ItemID, &rec.UserID, &at, &itemName, &userName); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.Action = domain.Action(action)
		rec.At = fromNanos(at)
		entries = append(entries, domain.HistoryEntry{
			Record: rec,
			Item:   domain.ResolveRef(rec.ItemID, nullString(itemName)),
			User:   domain.ResolveRef(rec.UserID, nullString(userName)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}
