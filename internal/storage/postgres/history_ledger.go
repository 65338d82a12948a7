package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/item-reservations/internal/domain"
)

type HistoryLedger struct {
	db
}

func NewHistoryLedger(pool *pgxpool.Pool) *HistoryLedger {
	return &HistoryLedger{db{pool: pool}}
}

func (l *HistoryLedger) Append(ctx context.Context, rec domain.HistoryRecord) (domain.HistoryRecord, error) {
	if !rec.Action.Valid() {
		return domain.HistoryRecord{}, fmt.Errorf("append history: unknown action %q", rec.Action)
	}

	const stmt = `
INSERT INTO history_records (id, action, item_id, user_id, at)
VALUES ($1, $2, $3, $4, $5)
RETURNING seq`

	if err := l.queryRow(ctx, stmt, rec.ID, string(rec.Action), rec.ItemID, rec.UserID, rec.At).Scan(&rec.Seq); err != nil {
		if isInvalidUUID(err) {
			return domain.HistoryRecord{}, domain.ErrInvalidID
		}
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
		args = append(args, filter.ItemID)
		where = append(where, fmt.Sprintf("h.item_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("h.user_id = $%d", len(args)))
	}

	query := `
SELECT h.id::text, h.seq, h.action, h.item_id::text, h.user_id::text, h.at, i.name, u.name
FROM history_records h
LEFT JOIN items i ON i.id = h.item_id
LEFT JOIN users u ON u.id = h.user_id`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY h.at DESC, h.seq DESC"

	rows, err := l.query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HistoryEntry, error) {
		var (
			rec      domain.HistoryRecord
			action   string
			itemName *string
			userName *string
		)
		if err := row.Scan(&rec.ID, &rec.Seq, &action, &rec.ItemID, &rec.UserID, &rec.At, &itemName, &userName); err != nil {
			return domain.HistoryEntry{}, err
		}
		rec.Action = domain.Action(action)
		return domain.HistoryEntry{
			Record: rec,
			Item:   domain.ResolveRef(rec.ItemID, itemName),
			User:   domain.ResolveRef(rec.UserID, userName),
		}, nil
	})
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}
