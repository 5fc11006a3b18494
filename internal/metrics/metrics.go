// Package metrics exposes Prometheus counters for the sign-in flow and exports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes recorded by RecordLogin.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Recorder is the subset of Collector used by handlers.
type Recorder interface {
	RecordLogin(outcome string)
	RecordGuestSession()
	RecordStateMismatch()
	RecordExport(format string)
}

// Collector records Prometheus metrics.
type Collector struct {
	logins        *prometheus.CounterVec
	guestSessions prometheus.Counter
	stateMismatch prometheus.Counter
	exports       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planos_logins_total",
			Help: "Google sign-in attempts by outcome.",
		}, []string{"outcome"}),
		guestSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planos_guest_sessions_total",
			Help: "Sessions that fell back to the shared guest account.",
		}),
		stateMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planos_state_mismatch_total",
			Help: "OAuth callbacks rejected because the state did not match.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planos_exports_total",
			Help: "Progress exports by file format.",
		}, []string{"format"}),
	}

	reg.MustRegister(c.logins, c.guestSessions, c.stateMismatch, c.exports)
	return c
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordGuestSession() {
	c.guestSessions.Inc()
}

func (c *Collector) RecordStateMismatch() {
	c.stateMismatch.Inc()
}

func (c *Collector) RecordExport(format string) {
	c.exports.WithLabelValues(format).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordLogin(string)   {}
func (Nop) RecordGuestSession()  {}
func (Nop) RecordStateMismatch() {}
func (Nop) RecordExport(string)  {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
