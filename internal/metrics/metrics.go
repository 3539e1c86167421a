// Package metrics provides Prometheus metrics for auth and schema decisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors. A disabled instance records
// nothing and serves an empty /metrics page.
type Metrics struct {
	enabled  bool
	registry *prometheus.Registry

	authDecisions *prometheus.CounterVec
	logins        *prometheus.CounterVec
	migrations    *prometheus.CounterVec
	cacheResults  *prometheus.CounterVec
	rateLimited   prometheus.Counter
	events        *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry, along
// with the Go runtime and process collectors.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled, registry: prometheus.NewRegistry()}
	if !enabled {
		return m
	}
	f := promauto.With(m.registry)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.authDecisions = f.NewCounterVec(prometheus.CounterOpts{
		Name: "mechanic_shop_auth_decisions_total",
		Help: "Access guard decisions on protected routes",
	}, []string{"result"})

	m.logins = f.NewCounterVec(prometheus.CounterOpts{
		Name: "mechanic_shop_logins_total",
		Help: "Login attempts by principal kind and result",
	}, []string{"kind", "result"})

	m.migrations = f.NewCounterVec(prometheus.CounterOpts{
		Name: "mechanic_shop_migrations_total",
		Help: "Startup migration runs by outcome",
	}, []string{"outcome"})

	m.cacheResults = f.NewCounterVec(prometheus.CounterOpts{
		Name: "mechanic_shop_cache_requests_total",
		Help: "Response cache lookups by result",
	}, []string{"result"})

	m.rateLimited = f.NewCounter(prometheus.CounterOpts{
		Name: "mechanic_shop_rate_limited_total",
		Help: "Requests rejected by the login rate limiter",
	})

	m.events = f.NewCounterVec(prometheus.CounterOpts{
		Name: "mechanic_shop_ticket_events_total",
		Help: "Ticket events by direction and result",
	}, []string{"direction", "result"})

	return m
}

// RecordAuthDecision records allow, missing_header, invalid_token or forbidden.
func (m *Metrics) RecordAuthDecision(result string) {
	if !m.enabled {
		return
	}
	m.authDecisions.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordLogin(kind, result string) {
	if !m.enabled {
		return
	}
	m.logins.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RecordMigration(outcome string) {
	if !m.enabled {
		return
	}
	m.migrations.WithLabelValues(outcome).Inc()
}

// RecordCache records hit, miss or bypass.
func (m *Metrics) RecordCache(result string) {
	if !m.enabled {
		return
	}
	m.cacheResults.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRateLimited() {
	if !m.enabled {
		return
	}
	m.rateLimited.Inc()
}

// RecordEvent records a published or consumed ticket event.
func (m *Metrics) RecordEvent(direction, result string) {
	if !m.enabled {
		return
	}
	m.events.WithLabelValues(direction, result).Inc()
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
