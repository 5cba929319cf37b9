package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters for the turn lifecycle and HTTP layer.
type Metrics struct {
	TurnsCreated     prometheus.Counter
	TurnsDelivered   prometheus.Counter
	TurnsAdvanced    prometheus.Counter
	TurnsPenalized   prometheus.Counter
	TurnsDepenalized prometheus.Counter
	SweepRuns        prometheus.Counter
	SweepErrors      prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPErrors       *prometheus.CounterVec
}

// NewMetrics registers and returns the service metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "turno_tickets_created_total",
			Help: "Tickets created.",
		}),
		TurnsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "turno_tickets_delivered_total",
			Help: "Tickets marked served.",
		}),
		TurnsAdvanced: factory.NewCounter(prometheus.CounterOpts{
			Name: "turno_tickets_advanced_total",
			Help: "Tickets skipped by an operator.",
		}),
		TurnsPenalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "turno_tickets_penalized_total",
			Help: "Tickets expired and penalized by the sweep.",
		}),
		TurnsDepenalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "turno_depenalizations_total",
			Help: "Penalties cleared by an admin.",
		}),
		SweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "turno_sweep_runs_total",
			Help: "Expiration sweep passes.",
		}),
		SweepErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "turno_sweep_errors_total",
			Help: "Per-ticket failures during sweep passes.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by method, path and error code.",
		}, []string{"method", "path", "code"}),
	}
}
