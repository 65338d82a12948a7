package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cimillas/item-reservations/internal/domain"
)

// Metrics holds the reservation engine collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Operations *prometheus.CounterVec   // op=reserve|release|join_queue|leave_queue, result=success|<kind>
	OpLatency  *prometheus.HistogramVec // op

	SweepRuns     prometheus.Counter
	Reclaimed     prometheus.Counter
	Promoted      prometheus.Counter
	StaleSkipped  prometheus.Counter
	SweepFailures prometheus.Counter
	SweepLatency  prometheus.Histogram
	ActiveHolds   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_operations_total",
				Help: "Reservation engine operations by result",
			},
			[]string{"op", "result"},
		),
		OpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reservation_op_latency_ms",
				Help:    "Latency of reservation engine operations (ms)",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"op"},
		),
		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclamation_sweeps_total",
			Help: "Total reclamation sweeps executed",
		}),
		Reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclamation_expired_total",
			Help: "Total expired holds released by the sweeper",
		}),
		Promoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclamation_promoted_total",
			Help: "Total waiting users promoted to holder by the sweeper",
		}),
		StaleSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclamation_stale_total",
			Help: "Expired candidates that changed state before their transaction ran",
		}),
		SweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclamation_failures_total",
			Help: "Per-item sweep transactions that failed",
		}),
		SweepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reclamation_sweep_latency_ms",
			Help:    "Duration of a full sweep (ms)",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
		ActiveHolds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reservation_active_holds",
			Help: "Items currently held",
		}),
	}

	reg.MustRegister(
		m.Operations,
		m.OpLatency,
		m.SweepRuns,
		m.Reclaimed,
		m.Promoted,
		m.StaleSkipped,
		m.SweepFailures,
		m.SweepLatency,
		m.ActiveHolds,
	)
	return m
}

// ObserveOp records the outcome and latency of one engine operation.
func (m *Metrics) ObserveOp(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = domain.KindOf(err).String()
	}
	m.Operations.WithLabelValues(op, result).Inc()
	m.OpLatency.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
}

// ObserveSweep records the totals of one sweep.
func (m *Metrics) ObserveSweep(start time.Time, reclaimed, promoted, stale, failed int) {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
	m.Reclaimed.Add(float64(reclaimed))
	m.Promoted.Add(float64(promoted))
	m.StaleSkipped.Add(float64(stale))
	m.SweepFailures.Add(float64(failed))
	m.SweepLatency.Observe(float64(time.Since(start).Milliseconds()))
}

func (m *Metrics) SetActiveHolds(n int) {
	if m == nil {
		return
	}
	m.ActiveHolds.Set(float64(n))
}
