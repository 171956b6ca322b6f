// Package metrics holds the prometheus collectors of the client: token
// refreshes, request failures by class, sync throughput, connectivity and the session.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "healthkeeper"

// Request error classes.
const (
	ClassConnection = "connection"
	ClassTimeout    = "timeout"
	ClassServer     = "server"
	ClassClient     = "client"
	ClassAuth       = "unauthorized"
)

// Sync flows.
const (
	FlowPush = "push"
	FlowPull = "pull"
)

type Metrics struct {
	RefreshAttempts prometheus.Counter
	RefreshFailures prometheus.Counter
	RequestErrors   *prometheus.CounterVec

	ReportsPushed prometheus.Counter
	ReportsPulled prometheus.Counter
	SyncFailures  *prometheus.CounterVec

	Online   prometheus.Gauge
	SignedIn prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what most tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "refresh_attempts_total",
			Help: "Access token refreshes started.",
		}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "refresh_failures_total",
			Help: "Access token refreshes that ended the session.",
		}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_errors_total",
			Help: "Failed API requests by error class.",
		}, []string{"class"}),
		ReportsPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sync", Name: "reports_pushed_total",
			Help: "Outbox entries acknowledged by the server.",
		}),
		ReportsPulled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sync", Name: "reports_pulled_total",
			Help: "Server reports inserted into the read cache.",
		}),
		SyncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sync", Name: "failures_total",
			Help: "Sync runs that stopped on an error, by flow.",
		}, []string{"flow"}),
		Online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "net", Name: "online",
			Help: "1 when the API health endpoint was reachable on the last probe.",
		}),
		SignedIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "auth", Name: "signed_in",
			Help: "1 while a user session is active.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RefreshAttempts, m.RefreshFailures, m.RequestErrors,
			m.ReportsPushed, m.ReportsPulled, m.SyncFailures, m.Online, m.SignedIn,
		)
	}
	return m
}

// Handler serves the collectors of g in the text exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
