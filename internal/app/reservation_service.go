package app

import (
	"context"
	"errors"
	"time"

	"github.com/cimillas/item-reservations/internal/clock"
	"github.com/cimillas/item-reservations/internal/domain"
	"github.com/cimillas/item-reservations/internal/metrics"
)

const (
	defaultHoldDuration = 2 * time.Minute
	defaultHoldLimit    = 3
)

// ReservationService owns the hold state machine: FREE -> HELD on reserve,
// HELD -> FREE on release or expiry, and HELD -> HELD (new holder) when an
// expired hold is handed to the next waiting user.
type ReservationService struct {
	tx      Transactor
	items   ItemStore
	queue   QueueStore
	history HistoryLedger
	clock   clock.Clock
	metrics *metrics.Metrics

	holdDuration time.Duration
	holdLimit    int
}

type ReservationOption func(*ReservationService)

// WithHoldDuration overrides how long a new hold lasts.
func WithHoldDuration(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.holdDuration = d
		}
	}
}

// WithHoldLimit overrides how many items one user may hold at once.
func WithHoldLimit(n int) ReservationOption {
	return func(s *ReservationService) {
		if n > 0 {
			s.holdLimit = n
		}
	}
}

func WithReservationMetrics(m *metrics.Metrics) ReservationOption {
	return func(s *ReservationService) {
		s.metrics = m
	}
}

func NewReservationService(tx Transactor, items ItemStore, queue QueueStore, history HistoryLedger, clk clock.Clock, opts ...ReservationOption) *ReservationService {
	svc := &ReservationService{
		tx:           tx,
		items:        items,
		queue:        queue,
		history:      history,
		clock:        clk,
		holdDuration: defaultHoldDuration,
		holdLimit:    defaultHoldLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *ReservationService) HoldDuration() time.Duration { return s.holdDuration }
func (s *ReservationService) HoldLimit() int              { return s.holdLimit }

// Reserve makes userID the holder of a free item.
func (s *ReservationService) Reserve(ctx context.Context, itemID, userID string) (item domain.Item, err error) {
	defer s.observe("reserve", time.Now(), &err)
	if err := checkIDs(itemID, userID); err != nil {
		return domain.Item{}, err
	}

	var result domain.Item
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()

		current, err := s.items.GetItemForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}
		if current.Held() {
			return domain.ErrItemAlreadyHeld
		}

		if err := s.checkBelowLimit(txCtx, userID); err != nil {
			return err
		}

		hold := domain.NewHold(userID, now, s.holdDuration)
		if err := s.items.SetHold(txCtx, itemID, hold, now); err != nil {
			return err
		}
		// A direct reservation supersedes the caller's own place in the queue.
		if _, err := s.queue.Remove(txCtx, itemID, userID); err != nil {
			return err
		}
		if err := s.record(txCtx, domain.ActionReserve, itemID, userID, now); err != nil {
			return err
		}

		result = current.WithHold(hold)
		result.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return result, nil
}

// Release returns an item held by userID.
func (s *ReservationService) Release(ctx context.Context, itemID, userID string) (item domain.Item, err error) {
	defer s.observe("release", time.Now(), &err)
	if err := checkIDs(itemID, userID); err != nil {
		return domain.Item{}, err
	}

	var result domain.Item
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()

		current, err := s.items.GetItemForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}
		if !current.HeldBy(userID) {
			return domain.ErrNotHolder
		}

		if err := s.items.ClearHold(txCtx, itemID, userID, now); err != nil {
			return err
		}
		if err := s.record(txCtx, domain.ActionReturnVoluntary, itemID, userID, now); err != nil {
			return err
		}

		result = current.Free()
		result.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return result, nil
}

// JoinQueue puts userID at the back of the waiting queue of a held item.
func (s *ReservationService) JoinQueue(ctx context.Context, itemID, userID string) (entry domain.WaitingEntry, err error) {
	defer s.observe("join_queue", time.Now(), &err)
	if err := checkIDs(itemID, userID); err != nil {
		return domain.WaitingEntry{}, err
	}

	var result domain.WaitingEntry
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.items.GetItemForUpdate(txCtx, itemID)
		if err != nil {
			return err
		}
		if current.HeldBy(userID) {
			return domain.ErrAlreadyHolder
		}
		if !current.Held() {
			return domain.ErrItemAvailable
		}

		result, err = s.queue.Enqueue(txCtx, domain.WaitingEntry{
			ItemID:   itemID,
			UserID:   userID,
			JoinedAt: s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return domain.WaitingEntry{}, err
	}
	return result, nil
}

// LeaveQueue removes userID from the waiting queue of an item.
func (s *ReservationService) LeaveQueue(ctx context.Context, itemID, userID string) (err error) {
	defer s.observe("leave_queue", time.Now(), &err)
	if err := checkIDs(itemID, userID); err != nil {
		return err
	}

	removed, err := s.queue.Remove(ctx, itemID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrNotQueued
	}
	return nil
}

// ListQueue returns the waiting queue of an item in promotion order.
func (s *ReservationService) ListQueue(ctx context.Context, itemID string) ([]domain.WaitingEntry, error) {
	if err := checkIDs(itemID); err != nil {
		return nil, err
	}
	if _, err := s.items.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.queue.ListByItem(ctx, itemID)
}

// QueuePosition returns the 1-based place of userID in the item's queue.
func (s *ReservationService) QueuePosition(ctx context.Context, itemID, userID string) (int, error) {
	entries, err := s.ListQueue(ctx, itemID)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if e.UserID == userID {
			return i + 1, nil
		}
	}
	return 0, domain.ErrNotQueued
}

// ListHolds returns the items currently held by userID.
func (s *ReservationService) ListHolds(ctx context.Context, userID string) ([]domain.Item, error) {
	if err := checkIDs(userID); err != nil {
		return nil, err
	}
	return s.items.ListItemsHeldBy(ctx, userID)
}

// ListHistory returns the audit log, newest first.
func (s *ReservationService) ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	for _, id := range []string{filter.ItemID, filter.UserID} {
		if id == "" {
			continue
		}
		if err := checkIDs(id); err != nil {
			return nil, err
		}
	}
	return s.history.List(ctx, filter)
}

// reclaim is one sweep transaction for a single item. The item is re-read
// under lock, so a candidate released or renewed since the scan is left alone.
func (s *ReservationService) reclaim(ctx context.Context, itemID string) (reclaimOutcome, error) {
	var out reclaimOutcome
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		out = reclaimOutcome{}
		now := s.clock.Now()

		current, err := s.items.GetItemForUpdate(txCtx, itemID)
		if errors.Is(err, domain.ErrItemNotFound) {
			out.stale = true
			return nil
		}
		if err != nil {
			return err
		}
		if !current.Expired(now) {
			out.stale = true
			return nil
		}

		previous := *current.HolderID
		if err := s.items.ClearHold(txCtx, itemID, previous, now); err != nil {
			return err
		}
		if err := s.record(txCtx, domain.ActionReturnExpired, itemID, previous, now); err != nil {
			return err
		}
		out.expiredHolder = previous

		waiting, err := s.queue.ListByItem(txCtx, itemID)
		if err != nil {
			return err
		}
		for _, w := range waiting {
			if err := s.checkBelowLimit(txCtx, w.UserID); err != nil {
				if errors.Is(err, domain.ErrHoldLimitReached) {
					continue
				}
				return err
			}

			hold := domain.NewHold(w.UserID, now, s.holdDuration)
			if err := s.items.SetHold(txCtx, itemID, hold, now); err != nil {
				return err
			}
			if err := s.record(txCtx, domain.ActionReserveFromQueue, itemID, w.UserID, now); err != nil {
				return err
			}
			if _, err := s.queue.Remove(txCtx, itemID, w.UserID); err != nil {
				return err
			}
			out.promoted = w.UserID
			break
		}
		return nil
	})
	if err != nil {
		return reclaimOutcome{}, err
	}
	return out, nil
}

type reclaimOutcome struct {
	stale         bool
	expiredHolder string
	promoted      string
}

func (s *ReservationService) checkBelowLimit(ctx context.Context, userID string) error {
	if err := s.items.LockHolder(ctx, userID); err != nil {
		return err
	}
	held, err := s.items.CountHeldBy(ctx, userID)
	if err != nil {
		return err
	}
	if held >= s.holdLimit {
		return domain.ErrHoldLimitReached
	}
	return nil
}

func (s *ReservationService) record(ctx context.Context, action domain.Action, itemID, userID string, at time.Time) error {
	_, err := s.history.Append(ctx, domain.HistoryRecord{
		ID:     newID(),
		Action: action,
		ItemID: itemID,
		UserID: userID,
		At:     at,
	})
	return err
}

// observe takes errp so a deferred call sees the named result as returned.
func (s *ReservationService) observe(op string, start time.Time, errp *error) {
	s.metrics.ObserveOp(op, start, *errp)
}
