package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the console's instruments in a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Requests       *prometheus.CounterVec
	Refreshes      *prometheus.CounterVec
	Retries        prometheus.Counter
	ForcedSignOuts prometheus.Counter
	GuardRedirects *prometheus.CounterVec
	SessionChecks  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qaconsole",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Requests sent through the API gateway by final outcome.",
		}, []string{"outcome"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qaconsole",
			Subsystem: "gateway",
			Name:      "refreshes_total",
			Help:      "Silent token refresh attempts by result.",
		}, []string{"result"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qaconsole",
			Subsystem: "gateway",
			Name:      "retries_total",
			Help:      "Original requests re-issued after a successful refresh.",
		}),
		ForcedSignOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qaconsole",
			Subsystem: "gateway",
			Name:      "forced_sign_outs_total",
			Help:      "Sessions cleared after an unrecoverable authorization failure.",
		}),
		GuardRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qaconsole",
			Subsystem: "guard",
			Name:      "redirects_total",
			Help:      "Redirects issued by route guards.",
		}, []string{"guard"}),
		SessionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qaconsole",
			Subsystem: "session",
			Name:      "checks_total",
			Help:      "Session checks by source (cookie, probe) and result.",
		}, []string{"source", "result"}),
	}

	m.registry.MustRegister(
		m.Requests,
		m.Refreshes,
		m.Retries,
		m.ForcedSignOuts,
		m.GuardRedirects,
		m.SessionChecks,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
