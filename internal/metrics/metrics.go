// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes Prometheus counters for the conversation
// synchronizer. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "companion"

// Send outcomes.
const (
	SendOK           = "ok"
	SendFailed       = "failed"
	SendNotConnected = "not_connected"
)

// Metrics holds the synchronizer's collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	events          *prometheus.CounterVec
	chunks          prometheus.Counter
	gaps            prometheus.Counter
	sends           *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	dropped         prometheus.Counter
	handlerFailures prometheus.Counter
	latency         prometheus.Histogram
	quality         *prometheus.GaugeVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events handled, by kind.",
		}, []string{"kind"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_chunks_total",
			Help:      "Response chunks folded into messages.",
		}),
		gaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_sequence_gaps_total",
			Help:      "Chunks whose sequence number did not follow the previous one.",
		}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "User sends, by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications enqueued, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications dropped because the queue was full.",
		}),
		handlerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_failures_total",
			Help:      "Event handlers that returned an error or panicked.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_latency_seconds",
			Help:      "Observed round-trip latency to the server.",
			Buckets:   []float64{.01, .025, .05, .1, .2, .5, 1, 2.5},
		}),
		quality: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_quality",
			Help:      "1 for the current connection quality, 0 otherwise.",
		}, []string{"quality"}),
	}
	m.Registry.MustRegister(
		m.events, m.chunks, m.gaps, m.sends, m.notifications,
		m.dropped, m.handlerFailures, m.latency, m.quality,
	)
	return m
}

// EventHandled counts one inbound event.
func (m *Metrics) EventHandled(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) ChunkFolded() {
	if m == nil {
		return
	}
	m.chunks.Inc()
}

func (m *Metrics) SequenceGap() {
	if m == nil {
		return
	}
	m.gaps.Inc()
}

// SendResult counts a user send with one of the Send* outcomes.
func (m *Metrics) SendResult(outcome string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notified(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) HandlerFailed() {
	if m == nil {
		return
	}
	m.handlerFailures.Inc()
}

func (m *Metrics) ObserveLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(d.Seconds())
}

// SetQuality marks current as the active quality among all.
func (m *Metrics) SetQuality(current string, all ...string) {
	if m == nil {
		return
	}
	for _, q := range all {
		m.quality.WithLabelValues(q).Set(0)
	}
	m.quality.WithLabelValues(current).Set(1)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
