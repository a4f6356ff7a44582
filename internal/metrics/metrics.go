// Package metrics exposes Prometheus instruments for the synchronizers,
// the change feed and the object server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry              *prometheus.Registry
	RemoteOperations      *prometheus.CounterVec
	RemoteDuration        *prometheus.HistogramVec
	RealtimeNotifications *prometheus.CounterVec
	ObjectsServed         *prometheus.CounterVec
}

// New registers the instruments on reg; a nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RemoteOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_operations_total",
			Help: "Remote store operations issued by the synchronizers",
		}, []string{"component", "operation", "outcome"}),
		RemoteDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remote_operation_duration_seconds",
			Help:    "Duration of remote store operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"component", "operation"}),
		RealtimeNotifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_notifications_total",
			Help: "Change notifications delivered to subscribers, by table and outcome",
		}, []string{"table", "outcome"}),
		ObjectsServed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "objects_served_total",
			Help: "Signed object requests, by status",
		}, []string{"status"}),
	}
}

// ObserveRemote records one remote operation. Safe on a nil receiver.
func (m *Metrics) ObserveRemote(component, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RemoteOperations.WithLabelValues(component, operation, outcome).Inc()
	m.RemoteDuration.WithLabelValues(component, operation).Observe(time.Since(start).Seconds())
}

// Notification counts a delivered ("delivered") or dropped ("dropped") change.
func (m *Metrics) Notification(table, outcome string) {
	if m == nil {
		return
	}
	m.RealtimeNotifications.WithLabelValues(table, outcome).Inc()
}

func (m *Metrics) ObjectServed(status string) {
	if m == nil {
		return
	}
	m.ObjectsServed.WithLabelValues(status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
