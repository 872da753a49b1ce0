/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package metrics provides Prometheus instrumentation for a seclink
// endpoint or server process.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "seclink"

// Metrics holds the counters and gauges seclink records. None of these
// are consulted by the protocol itself; they are a pure side channel
// for operators.
type Metrics struct {
	EndpointsActive prometheus.Gauge

	HandshakesStarted   prometheus.Counter
	HandshakesSucceeded prometheus.Counter
	HandshakeErrors     *prometheus.CounterVec

	RecordsSent     *prometheus.CounterVec
	RecordsReceived *prometheus.CounterVec
	BytesSent       prometheus.Counter
	BytesReceived   prometheus.Counter

	HandshakeLatency prometheus.Histogram

	AcceptsRejected prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide Metrics instance, registered
// against prometheus.DefaultRegisterer.
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New builds a Metrics instance registered against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EndpointsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoints_active",
			Help:      "Number of endpoints currently in the READY or CLOSED-pending state",
		}),
		HandshakesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_started_total",
			Help:      "Total handshakes attempted",
		}),
		HandshakesSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_succeeded_total",
			Help:      "Total handshakes that reached READY",
		}),
		HandshakeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_errors_total",
			Help:      "Total handshake failures by protoerr.Code",
		}, []string{"code"}),
		RecordsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_sent_total",
			Help:      "Total records sent by opcode",
		}, []string{"opcode"}),
		RecordsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_received_total",
			Help:      "Total records received by opcode",
		}, []string{"opcode"}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_sent_total",
			Help:      "Total plaintext payload bytes written by callers",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_bytes_received_total",
			Help:      "Total plaintext payload bytes delivered to callers",
		}),
		HandshakeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handshake_latency_seconds",
			Help:      "Histogram of handshake completion latency",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		AcceptsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepts_rejected_total",
			Help:      "Total inbound connection attempts rejected by the rate limiter",
		}),
	}
}

// RecordHandshakeStart marks the start of a handshake attempt.
func (m *Metrics) RecordHandshakeStart() {
	m.HandshakesStarted.Inc()
}

// RecordHandshakeSuccess marks a handshake reaching READY, with its
// elapsed duration in seconds.
func (m *Metrics) RecordHandshakeSuccess(latencySeconds float64) {
	m.HandshakesSucceeded.Inc()
	m.HandshakeLatency.Observe(latencySeconds)
	m.EndpointsActive.Inc()
}

// RecordHandshakeError records a handshake failure by its protoerr
// code name (e.g. "CRYPTO_VERIFY").
func (m *Metrics) RecordHandshakeError(code string) {
	m.HandshakeErrors.WithLabelValues(code).Inc()
}

// RecordEndpointClosed decrements the active-endpoint gauge.
func (m *Metrics) RecordEndpointClosed() {
	m.EndpointsActive.Dec()
}

// RecordSend records a record being sent.
func (m *Metrics) RecordSend(opcode string, payloadBytes int) {
	m.RecordsSent.WithLabelValues(opcode).Inc()
	if payloadBytes > 0 {
		m.BytesSent.Add(float64(payloadBytes))
	}
}

// RecordReceive records a record being received.
func (m *Metrics) RecordReceive(opcode string, payloadBytes int) {
	m.RecordsReceived.WithLabelValues(opcode).Inc()
	if payloadBytes > 0 {
		m.BytesReceived.Add(float64(payloadBytes))
	}
}

// RecordAcceptRejected records the rate limiter dropping an inbound
// connection attempt.
func (m *Metrics) RecordAcceptRejected() {
	m.AcceptsRejected.Inc()
}
