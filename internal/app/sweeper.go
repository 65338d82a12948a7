package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cimillas/item-reservations/internal/metrics"
)

const defaultSweepInterval = 30 * time.Second

// SweepReport summarises one pass of the sweeper.
type SweepReport struct {
	Scanned   int
	Reclaimed int
	Promoted  int
	Stale     int
	Failures  []SweepFailure
}

type SweepFailure struct {
	ItemID string
	Err    error
}

// Sweeper periodically returns expired holds and hands items to the next
// eligible waiting user.
type Sweeper struct {
	reservations *ReservationService
	logger       *slog.Logger
	metrics      *metrics.Metrics
	interval     time.Duration
}

type SweeperOption func(*Sweeper)

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSweeperMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func NewSweeper(reservations *ReservationService, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		reservations: reservations,
		logger:       slog.Default(),
		interval:     defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sweeper) Interval() time.Duration { return s.interval }

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweepAndLog(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	report, err := s.SweepOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("sweep failed", "err", err)
		}
		return
	}
	if report.Reclaimed > 0 || len(report.Failures) > 0 {
		s.logger.Info("sweep finished",
			"scanned", report.Scanned,
			"reclaimed", report.Reclaimed,
			"promoted", report.Promoted,
			"stale", report.Stale,
			"failed", len(report.Failures),
		)
	}
}

// SweepOnce reclaims every hold expired at the time of the scan. Each item is
// handled in its own transaction; a failure is recorded and the sweep moves on.
// Cancelling ctx stops the sweep between items, never inside one.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	var report SweepReport

	candidates, err := s.reservations.items.ListExpiredHolds(ctx, s.reservations.clock.Now())
	if err != nil {
		return report, err
	}
	report.Scanned = len(candidates)

	txCtx := context.WithoutCancel(ctx)
	for _, itemID := range candidates {
		if ctx.Err() != nil {
			break
		}

		out, err := s.reservations.reclaim(txCtx, itemID)
		if err != nil {
			s.logger.Error("reclaim failed", "item_id", itemID, "err", err)
			report.Failures = append(report.Failures, SweepFailure{ItemID: itemID, Err: err})
			continue
		}
		if out.stale {
			report.Stale++
			continue
		}

		report.Reclaimed++
		if out.promoted != "" {
			report.Promoted++
			s.logger.Debug("hold handed to queue",
				"item_id", itemID,
				"expired_holder", out.expiredHolder,
				"new_holder", out.promoted,
			)
		} else {
			s.logger.Debug("hold expired", "item_id", itemID, "expired_holder", out.expiredHolder)
		}
	}

	s.metrics.ObserveSweep(start, report.Reclaimed, report.Promoted, report.Stale, len(report.Failures))
	if held, err := s.reservations.items.CountHeld(txCtx); err == nil {
		s.metrics.SetActiveHolds(held)
	}
	return report, ctx.Err()
}
