package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog entry that can be reserved by one user at a time.
//
// HolderID, HoldStartedAt and HoldDeadline form the hold triple: they are
// either all nil (the item is free) or all set (the item is held).
type Item struct {
	ID            string
	Name          string
	Description   string
	Price         decimal.Decimal
	HolderID      *string
	HoldStartedAt *time.Time
	HoldDeadline  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Hold is the value written into an item's hold triple.
type Hold struct {
	HolderID  string
	StartedAt time.Time
	Deadline  time.Time
}

// NewHold starts a hold for holderID at now lasting d.
func NewHold(holderID string, now time.Time, d time.Duration) Hold {
	return Hold{
		HolderID:  holderID,
		StartedAt: now,
		Deadline:  now.Add(d),
	}
}

func (i Item) Held() bool {
	return i.HolderID != nil
}

// HeldBy reports whether userID is the current holder.
func (i Item) HeldBy(userID string) bool {
	return i.HolderID != nil && *i.HolderID == userID
}

// Expired reports whether the item is held and its deadline is not after now.
func (i Item) Expired(now time.Time) bool {
	return i.Held() && i.HoldDeadline != nil && !i.HoldDeadline.After(now)
}

// CurrentHold returns the hold triple, or false when the item is free.
func (i Item) CurrentHold() (Hold, bool) {
	if !i.Held() || i.HoldStartedAt == nil || i.HoldDeadline == nil {
		return Hold{}, false
	}
	return Hold{
		HolderID:  *i.HolderID,
		StartedAt: *i.HoldStartedAt,
		Deadline:  *i.HoldDeadline,
	}, true
}

// WithHold returns a copy of the item holding h.
func (i Item) WithHold(h Hold) Item {
	holder := h.HolderID
	started := h.StartedAt
	deadline := h.Deadline
	i.HolderID = &holder
	i.HoldStartedAt = &started
	i.HoldDeadline = &deadline
	return i
}

// Free returns a copy of the item with the hold triple cleared.
func (i Item) Free() Item {
	i.HolderID = nil
	i.HoldStartedAt = nil
	i.HoldDeadline = nil
	return i
}

// CheckHoldInvariant returns an error when only part of the hold triple is set.
func (i Item) CheckHoldInvariant() error {
	set := 0
	if i.HolderID != nil {
		set++
	}
	if i.HoldStartedAt != nil {
		set++
	}
	if i.HoldDeadline != nil {
		set++
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("item %s: partial hold (%d of 3 fields set)", i.ID, set)
	}
	return nil
}

// ValidatePrice rejects negative prices.
func ValidatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}
