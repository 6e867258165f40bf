// Package metrics exposes the application collectors on a private prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
)

// Bootstrap outcomes
const (
	OutcomeSeeded  = "seeded"
	OutcomePresent = "present"
	OutcomeFailed  = "failed"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	riskEntries prometheus.Gauge
	bootstrap   *prometheus.CounterVec
	appState    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		riskEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "riskmatrix",
			Name:      "risk_entries",
			Help:      "Number of registered risk entries at the last successful count.",
		}),
		bootstrap: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskmatrix",
			Name:      "bootstrap_total",
			Help:      "Store bootstrap runs by outcome.",
		}, []string{"outcome"}),
		appState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "riskmatrix",
			Name:      "app_state",
			Help:      "Lifecycle state of the application shell (5 = READY, 6 = FAILED).",
		}),
	}

	m.registry.MustRegister(
		m.riskEntries,
		m.bootstrap,
		m.appState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetRiskEntries(n int) {
	if m == nil {
		return
	}
	m.riskEntries.Set(float64(n))
}

func (m *Metrics) ObserveBootstrap(outcome string) {
	if m == nil {
		return
	}
	m.bootstrap.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetState(state types.AppState) {
	if m == nil {
		return
	}
	m.appState.Set(float64(state))
}

// BootstrapCounter returns the counter of outcome, for assertions
func (m *Metrics) BootstrapCounter(outcome string) prometheus.Counter {
	return m.bootstrap.WithLabelValues(outcome)
}
