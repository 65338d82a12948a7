package domain

import "time"

type Action string

const (
	ActionReserve          Action = "RESERVE"
	ActionReturnVoluntary  Action = "RETURN_VOLUNTARY"
	ActionReturnExpired    Action = "RETURN_EXPIRED"
	ActionReserveFromQueue Action = "RESERVE_FROM_QUEUE"
)

func (a Action) Valid() bool {
	switch a {
	case ActionReserve, ActionReturnVoluntary, ActionReturnExpired, ActionReserveFromQueue:
		return true
	}
	return false
}

// HistoryRecord is an immutable audit event. Seq is assigned by the ledger.
type HistoryRecord struct {
	ID     string
	Seq    int64
	Action Action
	ItemID string
	UserID string
	At     time.Time
}

// UnknownName is shown for history references whose item or user no longer exists.
const UnknownName = "unknown"

// Ref identifies the item or user a history record points at, resolved at read time.
type Ref struct {
	ID    string
	Name  string
	Known bool
}

// ResolveRef builds a Ref, falling back to UnknownName when name is nil.
func ResolveRef(id string, name *string) Ref {
	if name == nil {
		return Ref{ID: id, Name: UnknownName}
	}
	return Ref{ID: id, Name: *name, Known: true}
}

// HistoryEntry is a history record joined with its item and user.
type HistoryEntry struct {
	Record HistoryRecord
	Item   Ref
	User   Ref
}

// HistoryFilter narrows a history listing. Empty fields match everything.
type HistoryFilter struct {
	ItemID string
	UserID string
}
