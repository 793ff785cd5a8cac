package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quest"

// Metrics holds Prometheus collectors for the entry service
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	EntriesCreated prometheus.Counter
	Conflicts      *prometheus.CounterVec
	Solves         *prometheus.CounterVec
	SolvedEntries  prometheus.Gauge
	Exports        *prometheus.CounterVec
}

// New registers all collectors against reg. Pass a fresh prometheus.Registry
// in tests; registering twice on the same registerer panics.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestCounter: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of requests currently being processed",
		}),
		EntriesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_created_total",
			Help:      "Entries created through /create-entry",
		}),
		Conflicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entry_conflicts_total",
				Help:      "Rejected entry creations by conflicting field",
			},
			[]string{"field"},
		),
		Solves: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solves_total",
				Help:      "Solve confirmations by outcome",
			},
			[]string{"result"},
		),
		SolvedEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solved_entries",
			Help:      "Entries with the quest solved, refreshed by the stats job",
		}),
		Exports: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Waitlist snapshot exports by status",
			},
			[]string{"status"},
		),
	}
}
