package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the login and registration counters.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeAuth       = "auth"
	OutcomeLocked     = "locked"
	OutcomeConflict   = "conflict"
	OutcomeInternal   = "internal"
)

type Metrics struct {
	reg            *prometheus.Registry
	logins         *prometheus.CounterVec
	registrations  *prometheus.CounterVec
	lockouts       prometheus.Counter
	sessionLookups *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_login_attempts_total",
			Help: "Admin login attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_registrations_total",
			Help: "Admin registration attempts by outcome.",
		}, []string{"outcome"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admin_account_lockouts_total",
			Help: "Accounts locked after reaching the failed attempt threshold.",
		}),
		sessionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_session_lookups_total",
			Help: "Bearer session lookups by result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(
		m.logins,
		m.registrations,
		m.lockouts,
		m.sessionLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// The nil receiver checks let callers that do not care about metrics pass nil.

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

func (m *Metrics) SessionLookup(found bool) {
	if m == nil {
		return
	}
	result := "miss"
	if found {
		result = "hit"
	}
	m.sessionLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
