// Package metrics exposes Prometheus counters for reservation outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refusal reasons used as the "reason" label.
const (
	ReasonNotFound     = "not_found"
	ReasonInsufficient = "insufficient_inventory"
	ReasonInvalidState = "invalid_state"
	ReasonPersistence  = "persistence"
)

// Metrics holds the counters and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	ReservationsMade      prometheus.Counter
	ReservationsCancelled prometheus.Counter
	TicketsReserved       prometheus.Counter
	TicketsReleased       prometheus.Counter
	Refusals              *prometheus.CounterVec
}

// New builds a Metrics on its own registry, including the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ReservationsMade: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "reservations_made_total",
			Help:      "Reservations committed.",
		}),
		ReservationsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "reservations_cancelled_total",
			Help:      "Reservations cancelled.",
		}),
		TicketsReserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "tickets_reserved_total",
			Help:      "Tickets debited from inventory by committed reservations.",
		}),
		TicketsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "tickets_released_total",
			Help:      "Tickets credited back by committed cancellations.",
		}),
		Refusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "reservation_refusals_total",
			Help:      "Make or cancel attempts that did not commit, by operation and reason.",
		}, []string{"operation", "reason"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ReservationsMade,
		m.ReservationsCancelled,
		m.TicketsReserved,
		m.TicketsReleased,
		m.Refusals,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
