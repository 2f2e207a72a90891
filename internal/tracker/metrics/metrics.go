// Package metrics collects and exposes Prometheus metrics for the tracker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the metrics recording interface used by services and the
// audit emitter.
type Collector interface {
	RecordLogin(outcome string)
	RecordSecondFactor(outcome string)
	RecordAuditEvent(sink string)
	RecordAuditSinkFailure(sink string)
}

// PrometheusCollector implements Collector on top of a Prometheus registry.
type PrometheusCollector struct {
	logins            *prometheus.CounterVec
	secondFactors     *prometheus.CounterVec
	auditEvents       *prometheus.CounterVec
	auditSinkFailures *prometheus.CounterVec
}

// NewCollector creates a PrometheusCollector and registers its metrics with
// the given registry.
func NewCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		secondFactors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_second_factor_total",
			Help: "Second factor verifications by outcome.",
		}, []string{"outcome"}),
		auditEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_audit_events_total",
			Help: "Audit events written, per sink.",
		}, []string{"sink"}),
		auditSinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_audit_sink_failures_total",
			Help: "Audit events that failed to write, per sink.",
		}, []string{"sink"}),
	}

	reg.MustRegister(
		c.logins,
		c.secondFactors,
		c.auditEvents,
		c.auditSinkFailures,
	)

	return c
}

func (c *PrometheusCollector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *PrometheusCollector) RecordSecondFactor(outcome string) {
	c.secondFactors.WithLabelValues(outcome).Inc()
}

func (c *PrometheusCollector) RecordAuditEvent(sink string) {
	c.auditEvents.WithLabelValues(sink).Inc()
}

func (c *PrometheusCollector) RecordAuditSinkFailure(sink string) {
	c.auditSinkFailures.WithLabelValues(sink).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop is a Collector that discards everything. Useful in tests.
type Nop struct{}

func (Nop) RecordLogin(string)            {}
func (Nop) RecordSecondFactor(string)     {}
func (Nop) RecordAuditEvent(string)       {}
func (Nop) RecordAuditSinkFailure(string) {}
