package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Clearing-related Prometheus metrics. Defined in a standalone package to
// avoid import cycles between the engine and HTTP packages.

var (
	RearrangementsCommitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clearing_rearrangements_committed_total",
		Help: "Rearrangements que llegaron al punto de commit",
	})

	RearrangementsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clearing_rearrangements_rejected_total",
		Help: "Rearrangements rechazados durante la validación, por motivo",
	}, []string{"reason"})

	RearrangementParts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "clearing_rearrangement_parts",
		Help:    "Cantidad de transfer parts por rearrangement",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})

	CommitLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "clearing_commit_latency_us",
		Help:    "Latencia de validación+commit en microsegundos",
		Buckets: prometheus.ExponentialBuckets(10, 2, 14),
	})

	ActiveSeats = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "clearing_active_seats",
		Help: "Seats en estado Active",
	})

	PayoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clearing_payouts_total",
		Help: "Seats terminados cuyo payout fue entregado",
	})

	MintOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clearing_mint_ops_total",
		Help: "Operaciones de mint/burn por tipo y resultado",
	}, []string{"op", "result"})

	NotifyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clearing_notify_failures_total",
		Help: "Notificaciones al ledger que fallaron (fatales para la instancia)",
	})
)

// RegisterClearing registers the clearing metrics on the given registry (or
// default if nil).
func RegisterClearing(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		RearrangementsCommitted,
		RearrangementsRejected,
		RearrangementParts,
		CommitLatency,
		ActiveSeats,
		PayoutsTotal,
		MintOps,
		NotifyFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
