package domain

import "time"

// WaitingEntry places a user in an item's FIFO waiting queue.
// Order is JoinedAt ascending, with Seq breaking ties between equal timestamps.
type WaitingEntry struct {
	ItemID   string
	UserID   string
	JoinedAt time.Time
	Seq      int64
}
