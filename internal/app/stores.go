package app

import (
	"context"
	"time"

	"github.com/cimillas/item-reservations/internal/domain"
)

// Transactor runs fn as one atomic unit of work. Stores called with the
// context passed to fn take part in the same transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ItemStore is the catalog store. It exclusively owns item rows.
type ItemStore interface {
	CreateItem(ctx context.Context, item domain.Item) error
	GetItem(ctx context.Context, id string) (domain.Item, error)
	// GetItemForUpdate reads the item and locks its row until the transaction ends.
	GetItemForUpdate(ctx context.Context, id string) (domain.Item, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
	ListItemsHeldBy(ctx context.Context, userID string) ([]domain.Item, error)
	UpdateItemDetails(ctx context.Context, item domain.Item) error
	DeleteItem(ctx context.Context, id string) error

	// LockHolder serialises hold counting for userID until the transaction ends.
	LockHolder(ctx context.Context, userID string) error
	CountHeldBy(ctx context.Context, userID string) (int, error)
	CountHeld(ctx context.Context) (int, error)
	ListExpiredHolds(ctx context.Context, now time.Time) ([]string, error)

	// SetHold writes the full hold triple. It fails with ErrItemAlreadyHeld
	// when the item is not free.
	SetHold(ctx context.Context, itemID string, hold domain.Hold, now time.Time) error
	// ClearHold clears the full hold triple. It fails with ErrNotHolder when
	// holderID is not the current holder.
	ClearHold(ctx context.Context, itemID, holderID string, now time.Time) error
}

// QueueStore owns the per-item waiting queues.
type QueueStore interface {
	// Enqueue inserts the entry and returns it with its sequence assigned.
	// It fails with ErrAlreadyQueued for a duplicate (item, user) pair.
	Enqueue(ctx context.Context, entry domain.WaitingEntry) (domain.WaitingEntry, error)
	Remove(ctx context.Context, itemID, userID string) (bool, error)
	RemoveByItem(ctx context.Context, itemID string) (int, error)
	// ListByItem returns the queue in FIFO order.
	ListByItem(ctx context.Context, itemID string) ([]domain.WaitingEntry, error)
	QueueLengths(ctx context.Context) (map[string]int, error)
}

// HistoryLedger is the append-only audit log.
type HistoryLedger interface {
	Append(ctx context.Context, rec domain.HistoryRecord) (domain.HistoryRecord, error)
	// List returns matching records newest first, joined with item and user names.
	List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}
