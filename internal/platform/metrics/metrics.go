package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ChecksSubmitted     *prometheus.CounterVec
	CheckConflicts      prometheus.Counter
	CheckAmendments     prometheus.Counter
	StrikeNotifications prometheus.Counter
	LedgerResets        prometheus.Counter
	RequestDuration     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers against a specific registerer so tests can isolate state.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChecksSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gearcheck_checks_submitted_total",
			Help: "Total number of successfully submitted equipment checks, by aggregate result",
		}, []string{"result"}),
		CheckConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "gearcheck_check_conflicts_total",
			Help: "Total number of submissions rejected by the one-check-per-day rule",
		}),
		CheckAmendments: factory.NewCounter(prometheus.CounterOpts{
			Name: "gearcheck_check_amendments_total",
			Help: "Total number of check corrections applied",
		}),
		StrikeNotifications: factory.NewCounter(prometheus.CounterOpts{
			Name: "gearcheck_strike_notifications_total",
			Help: "Total number of threshold notifications latched by the strike ledger",
		}),
		LedgerResets: factory.NewCounter(prometheus.CounterOpts{
			Name: "gearcheck_ledger_resets_total",
			Help: "Total number of strike ledger reset operations",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gearcheck_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}
