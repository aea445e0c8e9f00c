// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Notification results recorded by NotificationsTotal.
const (
	NotifySent       = "sent"
	NotifySuppressed = "suppressed"
	NotifyDropped    = "dropped"
	NotifyFailed     = "failed"
)

// Metrics contains custom Prometheus metrics for vfriends.
// All recording methods are safe on a nil receiver so components can run
// without a registry.
type Metrics struct {
	FramesTotal        prometheus.Counter
	EventsTotal        *prometheus.CounterVec
	ReconnectsTotal    prometheus.Counter
	Connected          prometheus.Gauge
	NotificationsTotal *prometheus.CounterVec
	AuthOutcomesTotal  *prometheus.CounterVec
}

// NewRegistry returns a registry with the standard Go and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// NewMetrics creates and registers custom vfriends metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vfriends_pipeline_frames_total",
			Help: "Total number of frames read from the event pipeline",
		}),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfriends_pipeline_events_total",
				Help: "Total number of classified pipeline events by kind",
			},
			[]string{"kind"},
		),
		ReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vfriends_pipeline_reconnects_total",
			Help: "Total number of pipeline reconnect attempts after a failure",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vfriends_pipeline_connected",
			Help: "Whether the event pipeline currently holds an open connection",
		}),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfriends_notifications_total",
				Help: "Total number of friend-online notifications by result",
			},
			[]string{"result"},
		),
		AuthOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vfriends_auth_outcomes_total",
				Help: "Total number of auth outcomes emitted by type",
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(
		m.FramesTotal,
		m.EventsTotal,
		m.ReconnectsTotal,
		m.Connected,
		m.NotificationsTotal,
		m.AuthOutcomesTotal,
	)

	return m
}

// FrameReceived counts one inbound pipeline frame.
func (m *Metrics) FrameReceived() {
	if m == nil {
		return
	}
	m.FramesTotal.Inc()
}

// EventClassified counts one classified event of the given kind.
func (m *Metrics) EventClassified(kind string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(kind).Inc()
}

// Reconnect counts one backoff-delayed reconnect.
func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.ReconnectsTotal.Inc()
}

// SetConnected records whether a stream connection is open.
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}

// Notification counts one notification with the given result.
func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}

// AuthOutcome counts one emitted auth outcome.
func (m *Metrics) AuthOutcome(kind string) {
	if m == nil {
		return
	}
	m.AuthOutcomesTotal.WithLabelValues(kind).Inc()
}
